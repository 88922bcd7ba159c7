// Package bind decodes JSON request bodies and validates them with go-playground/validator
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	perr "feedvault/internal/platform/errors"
)

// Validator pairs the validate instance with its english translator
type Validator struct {
	V     *validator.Validate
	Trans ut.Translator
}

// Get returns the process validator, built on first use
var Get = sync.OnceValue(newValidator)

func newValidator() *Validator {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "":
			return f.Name
		case "-":
			return ""
		}
		return name
	})
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for tag, text := range map[string]string{
		"min":      "{0} must be at least {1}",
		"max":      "{0} must be at most {1}",
		"datetime": "{0} must look like {1}",
	} {
		_ = v.RegisterTranslation(tag, trans,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tag, fe.Field(), fe.Param())
				return msg
			})
	}
	return &Validator{V: v, Trans: trans}
}

// Options tunes ParseJSON
type Options struct {
	MaxBytes     int64 // 0 means 1 MiB
	AllowUnknown bool
}

// ParseJSON decodes exactly one JSON value into T and validates it
// Decode problems are ErrorCodeJSON; failed validation is ErrorCodeValidation naming the first bad field.
func ParseJSON[T any](r *http.Request, opts ...Options) (T, error) {
	var zero, dst T
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 1 << 20
	}
	if r.Body == nil {
		return zero, perr.JSONErrf("empty body")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, o.MaxBytes))
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, perr.JSONErrf("empty body")
		}
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}

	if err := Get().V.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return zero, perr.Wrap(err, perr.ErrorCodeValidation, "validation error")
		}
		fe := verrs[0]
		return zero, perr.WithField(perr.New(perr.ErrorCodeValidation, fe.Translate(Get().Trans)), fieldPath(fe))
	}
	return dst, nil
}

// fieldPath drops the root struct name: "RangeInput.identities[0]" becomes "identities[0]"
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}
