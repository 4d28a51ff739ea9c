package triage

import (
	"encoding/json"
	"fmt"
)

// ValidationError reports why a candidate patient was not admitted.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MarshalJSON keeps the code in HTTP error bodies; echo would otherwise
// render only Error().
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	type body ValidationError
	return json.Marshal((*body)(e))
}

// Is matches on Code so wrapped or re-created errors compare equal to the
// sentinels below.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrMissingName   = &ValidationError{Code: "missing_name", Message: "name is required"}
	ErrInvalidAge    = &ValidationError{Code: "invalid_age", Message: "age must be a non-negative number of years and 0-11 months"}
	ErrInvalidTriage = &ValidationError{Code: "invalid_triage", Message: "triage level must be between 0 and 4"}
)

func invalidAge(format string, args ...any) error {
	return &ValidationError{Code: ErrInvalidAge.Code, Message: fmt.Sprintf(format, args...)}
}
