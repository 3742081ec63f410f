package user

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/easystudy/backend/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "user type must be one of: " + strings.Join(AllRoles, ", ")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)

	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// userRoleValidation checks that the provided user type is in AllRoles.
func userRoleValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, role := range AllRoles {
		if val == role {
			return true
		}
	}
	return false
}

// newUserStructValidation rejects passwords too similar to the user's own
// name or email. No complexity policy beyond that: the platform serves
// school kids and their tutors.
func newUserStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok || nu.Password == "" {
		return
	}

	getRatio := func(pwd, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
	}
	pwd := strings.ToLower(nu.Password)
	if getRatio(pwd, strings.ToLower(nu.FirstName)) >= pwdMaxSim ||
		getRatio(pwd, strings.ToLower(nu.LastName)) >= pwdMaxSim ||
		getRatio(pwd, nu.Email) >= pwdMaxSim {
		sl.ReportError(nu.Password, "password", "Password", pwdAttrSimTag, "")
	}
}
