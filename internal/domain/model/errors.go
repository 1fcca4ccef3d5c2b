package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks caller faults that are reported as 400.
	ErrValidation = errors.New("validation error")
	// ErrInvalidInput marks payload values that cannot be coerced to their type.
	ErrInvalidInput = errors.New("invalid input")
	// ErrArtifactLoad marks missing, corrupt or inconsistent artifacts.
	ErrArtifactLoad = errors.New("artifact load failed")
	// ErrPrediction marks a failure inside a regressor.
	ErrPrediction = errors.New("prediction failed")
)

// MissingFieldsError lists required payload keys that were absent.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	quoted := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		quoted[i] = "'" + f + "'"
	}
	return fmt.Sprintf("Missing fields: [%s]", strings.Join(quoted, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrValidation
}

// UnknownModelError is returned for a model selector that is not registered.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return "Unknown model. Use model=lr or model=rf"
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidInputError reports a field whose value has the wrong type.
type InvalidInputError struct {
	Field    string
	Expected string
	Value    any
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("Invalid input types: %s must be %s, got %v", e.Field, e.Expected, e.Value)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ArtifactLoadError wraps a failure to read or validate an artifact file.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

func (e *ArtifactLoadError) Is(target error) bool {
	return target == ErrArtifactLoad
}

// PredictionError wraps a regressor failure.
type PredictionError struct {
	Model string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func (e *PredictionError) Is(target error) bool {
	return target == ErrPrediction
}
