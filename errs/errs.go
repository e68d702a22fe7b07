// Package errs defines the sentinel errors shared by the cso packages.
//
// Errors are wrapped with fmt.Errorf("%w: ...") at the point they are raised, so
// callers should match them with errors.Is.
package errs

import "errors"

// Layout errors
var (
	ErrUnalignedSourceSize = errors.New("source size is not a multiple of the sector size")
	ErrNegativeSourceSize  = errors.New("source size is negative")
	ErrSourceTooLarge      = errors.New("source size exceeds the addressable container size")
	ErrInvalidSectorPos    = errors.New("sector position is not sector aligned or out of range")
)

// Header and index errors
var (
	ErrInvalidHeaderSize     = errors.New("invalid header size")
	ErrInvalidMagic          = errors.New("invalid container magic")
	ErrInvalidVersion        = errors.New("unsupported container version")
	ErrInvalidSectorSize     = errors.New("unsupported sector size")
	ErrInvalidIndexEntrySize = errors.New("invalid index entry size")
)

// Session errors
var (
	ErrPoolExhausted      = errors.New("sector pool exhausted")
	ErrWriteSizeMismatch  = errors.New("data could not be written to output file")
	ErrProcessingFailure  = errors.New("sector processing failed")
	ErrNoDestination      = errors.New("output destination is not set")
	ErrDestinationSet     = errors.New("output destination is already set")
	ErrSessionFailed      = errors.New("output session has failed")
	ErrAlreadyFinalized   = errors.New("output session is already finalized")
	ErrInvalidCompression = errors.New("invalid compression type")
	ErrInvalidOption      = errors.New("invalid option value")
)
