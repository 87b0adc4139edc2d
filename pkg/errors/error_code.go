package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidCandidate     ErrorCode = 102
	ErrCodeInvalidStop          ErrorCode = 103
	ErrCodeInvalidTakeProfit    ErrorCode = 104
	ErrCodeInsufficientData     ErrorCode = 105
	ErrCodeInvalidTimeRange     ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeBarSeriesUnordered    ErrorCode = 203

	// Strategy errors (300-399)
	ErrCodeStrategyNotFound      ErrorCode = 300
	ErrCodeStrategyAlreadyExists ErrorCode = 301
	ErrCodeStrategyRuntimeError  ErrorCode = 302

	// Backtest errors (400-499)
	ErrCodeBacktestNoBars      ErrorCode = 400
	ErrCodeBacktestWindowSize  ErrorCode = 401
	ErrCodeBacktestConfigError ErrorCode = 402

	// Selection errors (500-599)
	ErrCodeNoEligibleStrategy ErrorCode = 500
	ErrCodeNoStoredResults    ErrorCode = 501

	// Storage errors (600-699)
	ErrCodeStoreInitFailed   ErrorCode = 600
	ErrCodeStoreWriteFailed  ErrorCode = 601
	ErrCodeStoreReadFailed   ErrorCode = 602
	ErrCodeStoreCommitFailed ErrorCode = 603
)
