package pipeline

import "errors"

// Errors shared by the assemblers and the orchestrator. Callers match them with errors.Is.
var (
	// ErrAllocation is returned when a page or strip buffer cannot be created.
	ErrAllocation = errors.New("pipeline: buffer allocation failed")

	// ErrDimensionMismatch is returned when a frame does not match the consumer's tile size.
	ErrDimensionMismatch = errors.New("pipeline: frame dimensions do not match tile size")

	// ErrEncode is returned when an image cannot be encoded.
	ErrEncode = errors.New("pipeline: image encode failed")

	// ErrIO is returned when an artifact cannot be written.
	ErrIO = errors.New("pipeline: artifact write failed")

	// ErrEmptyStream is returned when an output accepted no frames.
	ErrEmptyStream = errors.New("pipeline: no frames accepted")

	// ErrTruncatedStream is returned when the source failed before clean end of stream.
	ErrTruncatedStream = errors.New("pipeline: stream truncated")
)
