package voucher

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"voucherdesk/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields returns the form field names that failed, in struct order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for _, err := range v {
		out = append(out, err.Field)
	}
	return out
}

type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{validate: v}
}

// Validate only enforces presence of the crew and flight fields. Formats are
// the backend's business.
func (v *RequestValidator) Validate(req *model.VoucherRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		message := fmt.Sprintf("failed on %s", err.Tag())
		if err.Tag() == "required" {
			message = "is required"
		}
		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}
	return out
}
