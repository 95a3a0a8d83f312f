package pipeline

import "errors"

var (
	// ErrInputNotFound is returned when the input path does not exist.
	ErrInputNotFound = errors.New("input file not found")
	// ErrDecode is returned when the input bytes are not valid in the configured encoding.
	ErrDecode = errors.New("failed to decode input")
	// ErrUnknownEncoding is returned for encoding names that cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown text encoding")
	// ErrMalformedRow is returned when the delimited text cannot be parsed into
	// rows of the header's width.
	ErrMalformedRow = errors.New("malformed row")
	// ErrInsufficientData is returned when fewer rows than the sample size survive filtering.
	ErrInsufficientData = errors.New("not enough rows to sample")
	// ErrWrite wraps every failure while producing the output file.
	ErrWrite = errors.New("failed to write output")
)
