package violation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasalearn/darasa/core"
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	if err := validate.RegisterValidation("violationkind", kindValidation); err != nil {
		panic(err)
	}
	core.RegisterCustomTranslation(validate, translator, "violationkind", "{0} must be a known violation kind")
}

func kindValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, kind := range AllKinds {
		if val == kind {
			return true
		}
	}
	return false
}
