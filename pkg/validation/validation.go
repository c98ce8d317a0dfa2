package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// MessagePrefix starts every aggregated validation message.
const MessagePrefix = "Invalid input data"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return enums.Role(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return enums.Difficulty(fl.Field().String()).IsValid()
	})
	return v
}

// Struct validates v and folds every violation into one validation error.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, MessagePrefix)
	}

	details := map[string]string{}
	var combined error
	for _, fe := range fieldErrs {
		msg := Message(fe)
		details[fe.Field()] = msg
		combined = multierr.Append(combined, fmt.Errorf("%s: %s", fe.Field(), msg))
	}
	return Error(combined, details)
}

// Error builds the aggregated validation error from combined field errors.
func Error(combined error, details map[string]string) *pkgerrors.Error {
	parts := multierr.Errors(combined)
	msgs := make([]string, len(parts))
	for i, e := range parts {
		msgs[i] = e.Error()
	}
	sort.Strings(msgs)
	return pkgerrors.New(pkgerrors.CodeValidation, MessagePrefix+". "+strings.Join(msgs, ". ")).WithDetails(details)
}

// Field builds a single-field validation error.
func Field(name, msg string) *pkgerrors.Error {
	return Error(fmt.Errorf("%s: %s", name, msg), map[string]string{name: msg})
}

func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "ltfield":
		return fmt.Sprintf("must be below %s", lowerFirst(fe.Param()))
	case "eqfield":
		return "passwords are not the same"
	case "email":
		return "must be a valid email"
	case "role":
		return "must be one of user, guide, lead-guide, admin"
	case "difficulty":
		return "must be one of easy, medium, difficult"
	case "uuid", "uuid4":
		return "must be a valid id"
	}
	return "is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
