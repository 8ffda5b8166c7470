package errors

import (
	"github.com/atomiq-chain/atomiq/jsonx"
)

// EngineErrorCode represents standardized error codes for engine operations
type EngineErrorCode string

const (
	// General errors
	ErrCodeInternal EngineErrorCode = "internal_error"

	// Validation errors (pool submit)
	ErrCodeDataTooLarge EngineErrorCode = "data_too_large"
	ErrCodePoolFull     EngineErrorCode = "mempool_full"
	ErrCodeDuplicateTx  EngineErrorCode = "duplicate_transaction"

	// Execution errors (per-transaction, never surfaced at the boundary)
	ErrCodeInvalidNonce  EngineErrorCode = "invalid_nonce"
	ErrCodeDecodeFailed  EngineErrorCode = "decode_failed"
	ErrCodeVrfSignFailed EngineErrorCode = "vrf_sign_failed"

	// Persistence errors (tick aborted, state rolled back)
	ErrCodeStorageUnavailable EngineErrorCode = "storage_unavailable"
	ErrCodeBatchFailed        EngineErrorCode = "batch_failed"
	ErrCodeCorruptedData      EngineErrorCode = "corrupted_data"

	// Finalization wait errors
	ErrCodeTimeout            EngineErrorCode = "timeout"
	ErrCodeEventChannelClosed EngineErrorCode = "event_channel_closed"
	ErrCodeEventSendFailed    EngineErrorCode = "event_send_failed"

	// Verification errors (returned verbatim to the verifier)
	ErrCodeSignatureInvalid     EngineErrorCode = "signature_invalid"
	ErrCodeOutputMismatch       EngineErrorCode = "output_mismatch"
	ErrCodeCoinMismatch         EngineErrorCode = "coin_mismatch"
	ErrCodeInputMessageMismatch EngineErrorCode = "input_message_mismatch"

	// Lookup errors
	ErrCodeTransactionNotFound EngineErrorCode = "transaction_not_found"
	ErrCodeBlockNotFound       EngineErrorCode = "block_not_found"
	ErrCodeGameResultNotFound  EngineErrorCode = "game_result_not_found"
)

// EngineError represents a standardized engine error
type EngineError struct {
	Code    EngineErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	err, _ := jsonx.Marshal(EngineError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// New creates an EngineError with the given code and message
func New(code EngineErrorCode, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// CodeOf extracts the engine error code from err, or ErrCodeInternal
// when err is not an EngineError.
func CodeOf(err error) EngineErrorCode {
	if e, ok := err.(*EngineError); ok {
		return e.Code
	}
	return ErrCodeInternal
}

// Is reports whether err is an EngineError carrying code.
func Is(err error, code EngineErrorCode) bool {
	e, ok := err.(*EngineError)
	return ok && e.Code == code
}
