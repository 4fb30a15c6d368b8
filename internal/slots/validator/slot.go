package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"github.com/go-playground/validator/v10"
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

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	log.Info("Slot validator initialized successfully")

	return &SlotValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}
}

// ValidateImport checks the request shape and rejects batches that repeat
// the same (start, end) pair, which the ledger would refuse anyway.
func (v *SlotValidator) ValidateImport(req *model.SlotImport) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	seen := make(map[[2]int64]int, len(req.Slots))
	var validationErrors ValidationErrors
	for i, slot := range req.Slots {
		key := [2]int64{slot.StartTime.UnixMilli(), slot.EndTime.UnixMilli()}
		if first, ok := seen[key]; ok {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fmt.Sprintf("Slots[%d]", i),
				Message: fmt.Sprintf("duplicates Slots[%d]", first),
			})
			continue
		}
		seen[key] = i
	}
	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (v *SlotValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must contain at least %s item(s)", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must contain at most %s item(s)", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}

	return validationErrors
}
