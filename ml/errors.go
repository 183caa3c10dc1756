package ml

import "fmt"

// DataLoadError reports a dataset that is missing, unreadable, malformed or empty.
type DataLoadError struct {
	Path   string
	Column string
	Row    int
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	msg := "load dataset"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q row %d", e.Column, e.Row)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// MissingColumnError names a requested feature or target column absent from the dataset.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// InsufficientDataError is returned when a train/test split would leave fewer than
// two rows in either partition.
type InsufficientDataError struct {
	Rows  int
	Train int
	Test  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d rows split into %d train / %d test, need at least 2 each", e.Rows, e.Train, e.Test)
}

// EmptyInputError is returned for empty or length-mismatched input vectors.
type EmptyInputError struct {
	What     string
	Expected int
	Got      int
}

func (e *EmptyInputError) Error() string {
	if e.Expected == 0 && e.Got == 0 {
		return fmt.Sprintf("%s: empty input", e.What)
	}
	return fmt.Sprintf("%s: length mismatch (%d vs %d)", e.What, e.Expected, e.Got)
}
