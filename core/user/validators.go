package user

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	anyRoleTag  = "anyrole"
	anyRoleText = "invalid role"

	adminLevelTag  = "adminlevel"
	adminLevelText = "invalid admin level"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)
)

// Custom Validators

// anyRoleValidation checks that the provided role is one of AllRoles.
func anyRoleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	sort.Strings(AllRoles)
	if idx := sort.SearchStrings(AllRoles, role); idx < len(AllRoles) {
		return AllRoles[idx] == role
	}
	return false
}

// adminLevelValidation checks that the provided level is one of AllAdminLevels.
func adminLevelValidation(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	sort.Strings(AllAdminLevels)
	if idx := sort.SearchStrings(AllAdminLevels, level); idx < len(AllAdminLevels) {
		return AllAdminLevels[idx] == level
	}
	return false
}

// passwordStructValidation does struct level password validation on NewUser and UpdateUser.
func passwordStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(usr.Password, sl)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, sl)
		}
	}
}

// validatePassword applies the password policy:
// - minLen: 6 (counting runes, not bytes)
// - not entirely whitespace
func validatePassword(pwd string, sl validator.StructLevel) {
	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		sl.ReportError(pwd, "password", "Password", pwdMinLenTag, "")
		return
	}
	allSpace := true
	for _, char := range runes {
		if !unicode.IsSpace(char) {
			allSpace = false
			break
		}
	}
	if allSpace {
		sl.ReportError(pwd, "password", "Password", pwdMinLenTag, "")
	}
}
