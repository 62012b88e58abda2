package domain

import (
	"errors"
	"fmt"
)

// Error categories. Transport layers classify failures with errors.Is against
// these sentinels.
var (
	ErrValidation       = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUpstream         = errors.New("upstream provider error")
	ErrStorage          = errors.New("storage error")
	ErrResolutionFailed = errors.New("location could not be resolved")
)

var (
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported image type", ErrValidation)
	ErrImageTooLarge    = fmt.Errorf("%w: image exceeds size limit", ErrValidation)
	ErrReportNotFound   = fmt.Errorf("report %w", ErrNotFound)
	ErrImageNotFound    = fmt.Errorf("image %w", ErrNotFound)
)

// StorageError wraps ErrStorage with a description of the failed operation.
// The cause is not wrapped and must be logged by the caller, since it may
// carry file paths or driver messages.
func StorageError(op string) error {
	return fmt.Errorf("%w: %s", ErrStorage, op)
}
