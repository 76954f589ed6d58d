package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

var (
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)
	phoneRegex         = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,19}$`)

	// tags available to every request struct; a nil fn only overrides the message of a builtin tag
	commonTags = []struct {
		tag  string
		text string
		fn   validator.Func
	}{
		{"alphanum_", "only alphanumeric characters and underscores are allowed", matching(alphaNumUnderRegex)},
		{"phone", "phone must be a valid phone number", matching(phoneRegex)},
		{"required", requiredText, nil},
		{"required_with", requiredText, nil},
	}
)

// NewTranslator returns the english translator used to render validation errors.
func NewTranslator() ut.Translator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	return translator
}

// InitValidators registers the english messages, JSON field naming and the common custom tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)

	for _, ct := range commonTags {
		if ct.fn != nil {
			_ = validate.RegisterValidation(ct.tag, ct.fn)
		}
		RegisterTranslation(validate, translator, ct.tag, ct.text)
	}
}

// RegisterTranslation makes errors for tag render as text, replacing any existing message.
func RegisterTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func matching(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}
