package dto

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())

	// report json names so clients can map violations back to fields
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	_ = validate.RegisterValidation("taxid", validateTaxID)
	_ = validate.RegisterTranslation("taxid", trans,
		func(ut ut.Translator) error {
			return ut.Add("taxid", "{0} is not a valid tax id", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("taxid", fe.Field())
			return msg
		},
	)
}

func validateTaxID(fl validator.FieldLevel) bool {
	return domain.IsValidTaxID(fl.Field().String())
}

// Violation is one failed rule on one request field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate runs the struct's validate tags and returns every violation,
// ordered by field. A nil result means the value is valid.
func Validate(v any) []Violation {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Field: "", Message: err.Error()}}
	}

	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Violation{
			Field:   fieldPath(fe),
			Message: fe.Translate(trans),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fieldPath drops the top-level struct name: "RegisterRequest.roles[0]" -> "roles[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Check validates v and folds violations into a validation_failed error.
func Check(v any) error {
	vs := Validate(v)
	if len(vs) == 0 {
		return nil
	}
	fields := make(map[string]string, len(vs))
	for _, x := range vs {
		if _, seen := fields[x.Field]; !seen {
			fields[x.Field] = x.Message
		}
	}
	return domain.ErrValidation(fields)
}
