package classroom

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/hallpass-app/hallpass/core"
)

// Classroom is a teacher-owned group joinable by parents via class code.
type Classroom struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id,omitempty"`
	TeacherID string    `json:"teacher_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ParentIDs []string  `json:"parent_ids"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Classroom) HasParent(parentID string) bool {
	for _, id := range c.ParentIDs {
		if id == parentID {
			return true
		}
	}
	return false
}

// Student belongs to exactly one classroom and has zero or more linked parents.
type Student struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	Name      string    `json:"name"`
	ParentIDs []string  `json:"parent_ids"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (s *Student) HasParent(parentID string) bool {
	for _, id := range s.ParentIDs {
		if id == parentID {
			return true
		}
	}
	return false
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name     string `json:"name" validate:"required"`
	SchoolID string `json:"school_id"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewStudent contains information needed to add a Student to a Classroom.
type NewStudent struct {
	Name string `json:"name" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// JoinRequest carries a parent's join-by-code submission.
type JoinRequest struct {
	Code string `json:"code" validate:"required,classcode"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.Code = NormalizeCode(jr.Code)
	return validate.Struct(jr)
}

// InitValidators registers the classroom package's custom validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(classCodeTag, classCodeValidation)
	core.RegisterCustomTranslation(validate, translator, classCodeTag, classCodeText)
}
