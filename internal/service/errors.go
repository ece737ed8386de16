package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/trading-network/internal/repository"
)

var (
	// ErrForbidden is returned when the policy denies an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound aliases the repository sentinel so callers match a single value.
	ErrNotFound = repository.ErrNotFound
	// ErrConflict aliases the repository sentinel for unique key violations.
	ErrConflict = repository.ErrConflict
	// ErrHierarchyChanged aliases the repository sentinel for a supplier
	// chain that moved under a concurrent write.
	ErrHierarchyChanged = repository.ErrHierarchyChanged
	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// unusable refresh tokens alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive is returned on login for accounts that are not verified or
	// have been blocked.
	ErrInactive = errors.New("account is inactive")
)

// ValidationError reports rejected input field by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it carries at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

const (
	msgRequired     = "This field is required."
	msgDoesNotExist = "Object with this id does not exist."
)

// collect folds validator errors into ve, keyed by json field name.
func collect(ve *ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		ve.Add(fe.Field(), describe(fe))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	default:
		return "Invalid value."
	}
}

// newValidator returns a validator that reports json field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
