package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// NewValidator returns a validator whose errors translate into readable english
// messages through the returned translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()

	// report fields by their json name, which is what the caller sent.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})

	_ = enTranslations.RegisterDefaultTranslations(validate, translator)

	return validate, translator
}

func TranslateError(err error, trans ut.Translator) (errs []string) {
	if err == nil {
		return nil
	}

	validationErrors := validator.ValidationErrors{}

	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			translatedErr := e.Translate(trans)
			errs = append(errs, translatedErr)
		}

		return errs
	}

	return []string{err.Error()}
}
