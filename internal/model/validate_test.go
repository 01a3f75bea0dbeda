package model

import (
	"strings"
	"testing"
	"time"
)

// validJob returns a Job that passes all validation rules.
func validJob() Job {
	return Job{
		ID:           "1",
		CustomerName: "Rose",
		JobType:      "cleaning",
		ScheduledAt:  time.Date(2025, 1, 24, 15, 0, 0, 0, time.UTC),
		Location:     "12 Market St",
	}
}

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateJob_Valid(t *testing.T) {
	j := validJob()
	if err := ValidateJob(&j); err != nil {
		t.Fatalf("expected valid job, got %v", err)
	}
}

func TestValidateJob_FieldRules(t *testing.T) {
	now := time.Now()
	for _, tc := range []struct {
		name   string
		mutate func(*Job)
		field  string
	}{
		{"MissingID", func(j *Job) { j.ID = " " }, "id"},
		{"LongID", func(j *Job) { j.ID = strings.Repeat("x", 129) }, "id"},
		{"MissingCustomer", func(j *Job) { j.CustomerName = "" }, "customer_name"},
		{"LongCustomer", func(j *Job) { j.CustomerName = strings.Repeat("r", 201) }, "customer_name"},
		{"MissingType", func(j *Job) { j.JobType = "\t" }, "job_type"},
		{"MissingSchedule", func(j *Job) { j.ScheduledAt = time.Time{} }, "scheduled_at"},
		{"PresetCompletedAt", func(j *Job) { j.CompletedAt = &now }, "completed_at"},
		{"PresetClaim", func(j *Job) { j.ClaimedBy = "w1" }, "claimed_by"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			j := validJob()
			tc.mutate(&j)
			errs := fieldErrors(t, ValidateJob(&j))
			if !hasFieldError(errs, tc.field) {
				t.Errorf("expected error on field %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateJob_MultipleErrors(t *testing.T) {
	j := Job{}
	errs := fieldErrors(t, ValidateJob(&j))
	if len(errs) != 4 {
		t.Fatalf("expected 4 field errors, got %d: %v", len(errs), errs)
	}
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "id", Message: "is required"},
		{Field: "job_type", Message: "is required"},
	}}
	want := "validation failed: id: is required; job_type: is required"
	if got := ve.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
