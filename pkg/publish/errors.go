package publish

import (
	"errors"
	"fmt"
	"time"
)

// ProtocolError reports a store response that contradicts the request.
// It indicates a contract violation, not a transient condition.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "asset store protocol error: " + e.Message
}

// TransferError reports an asset whose upload failed after the transport's retries.
type TransferError struct {
	Path       string
	StorageKey string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to upload %s (%s): %v", e.Path, e.StorageKey, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// ConfirmationTimeoutError reports uploaded assets that never became visible
// through the existence check within the configured bound.
type ConfirmationTimeoutError struct {
	Timeout     time.Duration
	PendingKeys []string
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("%d uploaded asset(s) were not confirmed by the asset store within %v", len(e.PendingKeys), e.Timeout)
}

// IsProtocolError reports whether err wraps a ProtocolError
func IsProtocolError(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}

// IsTransferError reports whether err wraps a TransferError
func IsTransferError(err error) bool {
	var target *TransferError
	return errors.As(err, &target)
}

// IsConfirmationTimeout reports whether err wraps a ConfirmationTimeoutError
func IsConfirmationTimeout(err error) bool {
	var target *ConfirmationTimeoutError
	return errors.As(err, &target)
}
