package api

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mkravets/inventar/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report field names from json tags so error messages match the wire
	// format.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// checkRequest runs struct-tag validation and converts failures into a
// model.ErrInvalidInput so the error mapper turns them into a 400.
func checkRequest(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errorsAsValidation(err, &ve) {
		return fmt.Errorf("invalid request: %w", model.ErrInvalidInput)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), model.ErrInvalidInput)
}

func errorsAsValidation(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is not given", fe.Field(), strings.ToLower(fe.Param()))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// parseID parses a path or query id parameter. Non-numeric or
// non-positive values fail with model.ErrInvalidInput before any lookup.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", raw, model.ErrInvalidInput)
	}
	return id, nil
}
