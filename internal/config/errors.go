package config

import "fmt"

// MandatoryFieldMissingError reports that a required job-config key was
// absent from the parsed document.
type MandatoryFieldMissingError struct {
	Field string
}

func (e *MandatoryFieldMissingError) Error() string {
	return fmt.Sprintf("field %q is mandatory but missing", e.Field)
}

// WrongFieldTypeError reports that a job-config key was present but did
// not parse as its expected type.
type WrongFieldTypeError struct {
	Field    string
	Expected string
}

func (e *WrongFieldTypeError) Error() string {
	return fmt.Sprintf("field %q has wrong type, expected %s", e.Field, e.Expected)
}
