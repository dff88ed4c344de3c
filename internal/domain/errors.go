package domain

import "fmt"

// EngineError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// ---- Classifier / Session errors (-32010 to -32039) ----

var (
	ErrUnknownExercise = &EngineError{Code: -32010, Message: "unknown exercise type"}
	ErrSessionActive   = &EngineError{Code: -32011, Message: "an exercise session is already active"}
	ErrNoActiveSession = &EngineError{Code: -32012, Message: "no exercise session is active"}
	ErrSpecMismatch    = &EngineError{Code: -32013, Message: "exercise spec does not match its kind"}
)

// ---- Wallet errors (-32040 to -32069) ----

var (
	ErrNonPositiveAmount = &EngineError{Code: -32040, Message: "amount must be positive"}
	ErrInsufficientFunds = &EngineError{Code: -32041, Message: "wallet balance cannot fully fund the request"}
)

// ---- Access / Schedule / Limit errors (-32070 to -32099) ----

var (
	ErrScheduleWindowWrap = &EngineError{Code: -32070, Message: "schedule window must not wrap past midnight"}
	ErrScheduleInvalid    = &EngineError{Code: -32071, Message: "schedule validation failed"}
	ErrScheduleNotFound   = &EngineError{Code: -32072, Message: "schedule not found"}
	ErrLimitNotFound      = &EngineError{Code: -32073, Message: "daily limit not found"}
	ErrOverrideNotFound   = &EngineError{Code: -32074, Message: "override not found"}
)

// ---- Sync errors (-32100 to -32129) ----

var (
	ErrUsageSourceUnavailable = &EngineError{Code: -32100, Message: "usage source unavailable"}
	ErrUsageSourceNotSet      = &EngineError{Code: -32101, Message: "no usage source configured"}
	ErrReportInvalid          = &EngineError{Code: -32102, Message: "usage report validation failed"}
)

// ---- Store / Config errors (-32130 to -32159) ----

var (
	ErrStoreInit     = &EngineError{Code: -32130, Message: "failed to initialize store"}
	ErrStoreQuery    = &EngineError{Code: -32131, Message: "store query failed"}
	ErrStoreWrite    = &EngineError{Code: -32132, Message: "store write failed"}
	ErrConfigInvalid = &EngineError{Code: -32133, Message: "invalid configuration"}
)
