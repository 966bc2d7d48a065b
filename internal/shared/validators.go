package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

// Validator wraps [validator.Validate] with English messages and JSON field names.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a [Validator] ready to check tagged structs.
func NewValidator() *Validator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerTranslation(validate, translator, "required", requiredText)

	return &Validator{validate: validate, translator: translator}
}

// Struct validates s and converts failures into a [ValidationError] wrapping [ErrInvalidInput].
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return NewValidationError(ErrInvalidInput, fields...)
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
