package usecase

import "errors"

var (
	// ErrNoImage is returned when a classification is requested without an encoded image.
	ErrNoImage = errors.New("encoded image is required")

	// ErrClassificationFailed is returned when the classification collaborator could not produce a result.
	ErrClassificationFailed = errors.New("classification failed")
)
