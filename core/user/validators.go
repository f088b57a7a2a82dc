package user

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/practicum/core"
)

var (
	roleTag  = "role"
	roleText = fmt.Sprintf("{0} must be one of %s", joinRoles(AllRoles))
)

// InitValidators registers the user validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// NewValidator returns a core.Validator with the user validators registered.
func NewValidator() *core.Validator {
	v := core.NewValidator()
	InitValidators(v.Validate, v.Translator)
	return v
}

// Custom Validators

// roleValidation checks that the role is one of AllRoles.
func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}

func joinRoles(roles []Role) string {
	vals := make([]string, 0, len(roles))
	for _, r := range roles {
		vals = append(vals, string(r))
	}
	return strings.Join(vals, ", ")
}
