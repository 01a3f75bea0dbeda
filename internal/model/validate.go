package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateJob checks a job about to be ingested into the pending lane.
// It returns a *ValidationError if any rules fail, or nil if the job is valid.
func ValidateJob(j *Job) error {
	var ve ValidationError

	if strings.TrimSpace(j.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	} else if len(j.ID) > 128 {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "must be 128 characters or fewer"})
	}

	name := strings.TrimSpace(j.CustomerName)
	if name == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "customer_name", Message: "is required"})
	} else if len([]rune(name)) > 200 {
		ve.Errors = append(ve.Errors, FieldError{Field: "customer_name", Message: "must be 200 characters or fewer"})
	}

	if strings.TrimSpace(j.JobType) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "job_type", Message: "is required"})
	}

	if j.ScheduledAt.IsZero() {
		ve.Errors = append(ve.Errors, FieldError{Field: "scheduled_at", Message: "is required"})
	}

	// Lane-owned fields are written by the controller only.
	if j.CompletedAt != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "completed_at", Message: "must be empty for a new job"})
	}
	if j.ClaimedAt != nil || j.ClaimedBy != "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "claimed_by", Message: "must be empty for a new job"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
