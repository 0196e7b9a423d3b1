package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/go-playground/validator/v10"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

var (
	fullNameRe = regexp.MustCompile(`^[A-Za-z\s'-]+$`)

	vld     *validator.Validate
	vldOnce sync.Once
)

func instance() *validator.Validate {
	vldOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return models.ValidUsername(models.NormalizeUsername(fl.Field().String()))
		}))
		must(v.RegisterValidation("full_name", func(fl validator.FieldLevel) bool {
			return fullNameRe.MatchString(fl.Field().String())
		}))
		must(v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
			return strongPassword(fl.Field().String())
		}))
		vld = v
	})
	return vld
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// strongPassword needs an upper-case letter, a lower-case letter, a digit and one of @$!%*?&.
func strongPassword(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		}
	}
	return upper && lower && digit && special
}

var messages = map[string]string{
	"required":        "required",
	"email":           "must be a valid email",
	"username":        "must be 3-32 characters of a-z, 0-9 or _",
	"full_name":       "may only contain letters, spaces, hyphens and apostrophes",
	"password_policy": "must contain upper-case, lower-case, digit and one of @$!%*?&",
}

// Struct checks v's `validate` tags and reports every failing field by its JSON name.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := make(Errs, 0, len(ves))
	for _, fe := range ves {
		msg, ok := messages[fe.Tag()]
		if !ok {
			switch fe.Tag() {
			case "min":
				msg = "must be at least " + fe.Param() + " characters"
			case "max":
				msg = "must be at most " + fe.Param() + " characters"
			default:
				msg = "failed " + fe.Tag() + " check"
			}
		}
		out = append(out, ErrField{Field: fe.Field(), Msg: msg})
	}
	return out
}

// QueryInt parses an optional non-negative integer query parameter.
func QueryInt(field, raw string, def int) (int, *ErrField) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ErrField{Field: field, Msg: "must be a non-negative integer"}
	}
	return n, nil
}
