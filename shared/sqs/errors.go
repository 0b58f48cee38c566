package sqs

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrNotConfigured is returned when a required queue setting is absent
	ErrNotConfigured = errors.New("queue client is not configured")

	// ErrAccessDenied is returned when the queue service rejects the credentials
	ErrAccessDenied = errors.New("queue access denied")

	// ErrQueueNotFound is returned when the target queue does not exist at the endpoint
	ErrQueueNotFound = errors.New("queue does not exist")
)

// MissingSettingError reports the exact queue setting that is absent.
// It unwraps to ErrNotConfigured so callers can match the class.
type MissingSettingError struct {
	Setting string
}

func (e *MissingSettingError) Error() string {
	return "queue setting missing: " + e.Setting
}

func (e *MissingSettingError) Unwrap() error {
	return ErrNotConfigured
}

// classifyError maps AWS API failures onto the client's sentinel errors.
// Unrecognized errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var notFound *types.QueueDoesNotExist
	if errors.As(err, &notFound) {
		return errors.Join(ErrQueueNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException",
			"InvalidClientTokenId", "UnrecognizedClientException",
			"SignatureDoesNotMatch":
			return errors.Join(ErrAccessDenied, err)
		case "AWS.SimpleQueueService.NonExistentQueue", "QueueDoesNotExist":
			return errors.Join(ErrQueueNotFound, err)
		}
	}

	return err
}

// isInvalidReceiptHandle reports whether err means the receipt handle
// is no longer valid (already deleted or visibility expired).
func isInvalidReceiptHandle(err error) bool {
	var invalid *types.ReceiptHandleIsInvalid
	if errors.As(err, &invalid) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ReceiptHandleIsInvalid", "InvalidParameterValue", "MessageNotInflight":
			return true
		}
	}

	return false
}
