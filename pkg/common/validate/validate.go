// Package validate wraps go-playground/validator with English translations so
// validation failures can be reported field by field.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// FieldErrors maps a field name to a human readable failure message.
type FieldErrors map[string]string

// Error implements the error interface. Fields are listed in name order so the
// message is stable.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fe[k])
	}
	return strings.Join(parts, "; ")
}

// Validator validates structs using `validate` tags. Field names in messages
// come from the `env` tag, then the `json` tag, then the Go field name.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New constructs a Validator with English messages.
func New() (*Validator, error) {
	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("registering translations: %w", err)
	}

	return &Validator{validate: v, trans: trans}, nil
}

// Check validates s and returns FieldErrors when any rule fails.
func (v *Validator) Check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(FieldErrors, len(verrs))
	for _, verr := range verrs {
		fields[verr.Field()] = verr.Translate(v.trans)
	}
	return fields
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"env", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
