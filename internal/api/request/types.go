package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/captain-draft/internal/model"
)

// CreateSessionRequest is the request body for creating a draft session
type CreateSessionRequest struct {
	Captains []string `json:"captains" validate:"required,min=2,dive,captainname"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("captainname", fmt.Sprintf("required,max=%d", model.MaxCaptainNameLength))
	return v
}

// Validate checks the request against its struct tags
func (r *CreateSessionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleValidationError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatSingleValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.ActualTag() {
	case "required":
		if strings.HasPrefix(field, "captains[") {
			return fmt.Sprintf("%s: name must not be empty", field)
		}
		return "captains: list of captain names is required"
	case "min":
		return fmt.Sprintf("captains: at least %s captains are required", e.Param())
	case "max":
		return fmt.Sprintf("%s: name must be at most %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, e.ActualTag())
	}
}
