package letters

import (
	"errors"
	"fmt"
)

// Status is the final state of one candidate file.
type Status string

const (
	StatusImported Status = "imported"
	StatusSkipped  Status = "skipped"
	StatusPlanned  Status = "planned"
)

// Outcome records what happened to one candidate file.
type Outcome struct {
	File       string
	Identifier string
	Record     string
	Asset      string
	Status     Status
	Err        error
}

// Message renders the operator-facing line for the outcome.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusImported:
		return fmt.Sprintf("%s imported to %s.", o.File, o.Record)
	case StatusPlanned:
		return fmt.Sprintf("%s would be imported to %s.", o.File, o.Record)
	}
	switch {
	case errors.Is(o.Err, ErrNoIdentifier):
		return fmt.Sprintf("%s could not be imported. Failed to find Body ID in filename.", o.File)
	case errors.Is(o.Err, ErrRecordNotFound):
		return fmt.Sprintf("%s could not be imported. Matching body not found.", o.File)
	case errors.Is(o.Err, ErrImportFailed):
		return fmt.Sprintf("%s could not be imported. Have you checked the file permissions?", o.File)
	case errors.Is(o.Err, ErrUpdateFailed):
		return fmt.Sprintf("%s could not be imported. Failed to update record %s.", o.File, o.Record)
	case o.Err != nil:
		return fmt.Sprintf("%s could not be imported. %v", o.File, o.Err)
	default:
		return fmt.Sprintf("%s could not be imported.", o.File)
	}
}

// OK reports whether the file reached its intended final state.
func (o Outcome) OK() bool {
	return o.Status == StatusImported || o.Status == StatusPlanned
}

// Report collects the outcomes of a single run.
type Report struct {
	RunID      string
	Dir        string
	Year       string
	DryRun     bool
	Records    int
	Duplicates []Duplicate
	Outcomes   []Outcome
}
