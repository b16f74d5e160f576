package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth errors
// 12000-12999: Problem & Material errors
// 13000-13999: Submission & Evaluation errors
// 14000-14999: Artifact store errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	ServiceUnavailable  ErrorCode = 10006
	Timeout             ErrorCode = 10007

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	LockFailed ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300
	InvalidFormat    ErrorCode = 10301

	// ========== Auth Errors (11000-11999) ==========

	AuthenticationRequired ErrorCode = 11000
	AuthenticationDisabled ErrorCode = 11001
	InvalidToken           ErrorCode = 11002
	TokenExpired           ErrorCode = 11003
	TokenGenerationFailed  ErrorCode = 11004
	UserNotFound           ErrorCode = 11005
	InvalidCredentials     ErrorCode = 11006

	// ========== Problem & Material Errors (12000-12999) ==========

	ProblemNotFound     ErrorCode = 12000
	ProblemCreateFailed ErrorCode = 12001
	ProblemDeleteFailed ErrorCode = 12002
	TaskDescribeFailed  ErrorCode = 12100

	// ========== Submission & Evaluation Errors (13000-13999) ==========

	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	FileTooLarge           ErrorCode = 13002
	EvaluationNotFound     ErrorCode = 13100
	JudgeDispatchFailed    ErrorCode = 13101
	EventAppendFailed      ErrorCode = 13102

	// ========== Artifact Store Errors (14000-14999) ==========

	BlobNotFound     ErrorCode = 14000
	BlobWriteFailed  ErrorCode = 14001
	InvalidArchive   ErrorCode = 14100
	WorkspaceFailed  ErrorCode = 14101
	ExtractionFailed ErrorCode = 14102
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	LockFailed: "Failed to acquire lock",

	// Validation
	ValidationFailed: "Validation failed",
	InvalidFormat:    "Invalid format",

	// Auth
	AuthenticationRequired: "Authentication required",
	AuthenticationDisabled: "Authentication is disabled",
	InvalidToken:           "Invalid token",
	TokenExpired:           "Token has expired",
	TokenGenerationFailed:  "Failed to generate token",
	UserNotFound:           "User not found",
	InvalidCredentials:     "Invalid credentials",

	// Problem & Material
	ProblemNotFound:     "Problem not found",
	ProblemCreateFailed: "Failed to create problem",
	ProblemDeleteFailed: "Failed to delete problem",
	TaskDescribeFailed:  "Failed to describe judge task",

	// Submission & Evaluation
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	FileTooLarge:           "Submitted file is too large",
	EvaluationNotFound:     "Evaluation not found",
	JudgeDispatchFailed:    "Failed to dispatch evaluation to the judge",
	EventAppendFailed:      "Failed to append evaluation event",

	// Artifact store
	BlobNotFound:     "Blob not found",
	BlobWriteFailed:  "Failed to store blob",
	InvalidArchive:   "Content is not a valid archive",
	WorkspaceFailed:  "Workspace operation failed",
	ExtractionFailed: "Archive extraction failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == AuthenticationRequired, c == Unauthorized, c == InvalidToken, c == TokenExpired, c == InvalidCredentials:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == RecordNotFound, c == UserNotFound, c == ProblemNotFound,
		c == SubmissionNotFound, c == EvaluationNotFound, c == BlobNotFound:
		return 404
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == InvalidArchive, c == FileTooLarge:
		return 400
	default:
		return 500
	}
}
