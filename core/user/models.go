package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/hallpass-app/hallpass/core"
)

// Roles
const (
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Admin levels, in decreasing order of privilege.
const (
	AdminLevelSuper     = "super_admin"
	AdminLevelDistrict  = "district_admin"
	AdminLevelPrincipal = "principal"
	AdminLevelSchool    = "school_admin"
)

var (
	AllRoles       = []string{RoleTeacher, RoleParent, RoleStudent, RoleAdmin}
	AllAdminLevels = []string{AdminLevelSuper, AdminLevelDistrict, AdminLevelPrincipal, AdminLevelSchool}

	adminLevelPriorities = map[string]int{
		AdminLevelSuper:     40,
		AdminLevelDistrict:  30,
		AdminLevelPrincipal: 20,
		AdminLevelSchool:    10,
	}
)

// AdminLevelPriority returns the privilege rank of an admin level; unknown levels rank 0.
func AdminLevelPriority(level string) int {
	return adminLevelPriorities[level]
}

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	AdminLevel     string    `json:"admin_level,omitempty"`
	SchoolID       string    `json:"school_id,omitempty"`
	DistrictID     string    `json:"district_id,omitempty"`
	IsActive       *bool     `json:"is_active"`
	EmailConfirmed bool      `json:"email_confirmed"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsParent() bool  { return u.Role == RoleParent }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }

func (u *User) IsSuperAdmin() bool {
	return u.IsAdmin() && u.AdminLevel == AdminLevelSuper
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,anyrole"`
	AdminLevel      string `json:"admin_level" validate:"omitempty,adminlevel"`
	SchoolID        string `json:"school_id"`
	DistrictID      string `json:"district_id"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkEmailUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	AdminLevel      string `json:"admin_level" validate:"omitempty,adminlevel"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkEmailUniqueness(ctx, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// InitValidators registers the user package's custom validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(anyRoleTag, anyRoleValidation)
	core.RegisterCustomTranslation(validate, translator, anyRoleTag, anyRoleText)

	_ = validate.RegisterValidation(adminLevelTag, adminLevelValidation)
	core.RegisterCustomTranslation(validate, translator, adminLevelTag, adminLevelText)

	validate.RegisterStructValidation(passwordStructValidation, NewUser{})
	validate.RegisterStructValidation(passwordStructValidation, UpdateUser{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
}
