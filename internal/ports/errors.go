package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrNotFound        = errors.New("resource not found")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Configuration errors are fatal at startup: the process must refuse to
	// begin scheduling when one is present.
	ErrConfiguration = errors.New("invalid or missing configuration")

	// External service errors: the exchange or sentiment source is
	// unreachable or returned invalid data. The current tick is abandoned;
	// the next scheduled tick is the retry.
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrSentimentUnavailable = errors.New("sentiment source is unavailable")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Validation errors are expected conditions: the candidate signal is
	// dropped without a trade and without an error-level log.
	ErrInvalidPrice     = errors.New("price is zero or negative")
	ErrPositionTooSmall = errors.New("position below minimum viable size")

	// Persistence errors: the in-memory computation is discarded, no partial
	// mutation is applied, and the tick is surfaced as failed.
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")

	// ErrCycleAlreadyCompleted is returned when a cycle completion finds the
	// ledger no longer in the expected pre-state, i.e. the transition was
	// already applied. Guards against a double fund transfer.
	ErrCycleAlreadyCompleted = errors.New("cycle completion already applied")

	// ErrReportExists is returned when a monthly report for the given month
	// key has already been created.
	ErrReportExists = errors.New("monthly report already exists")
)
