package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Record store errors
// 12000-12999: Blob store / cache / event stream errors
// 13000-13999: Grading pipeline errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	InternalError      ErrorCode = 10001
	InvalidParams      ErrorCode = 10002
	NotFound           ErrorCode = 10003
	Timeout            ErrorCode = 10004
	ServiceUnavailable ErrorCode = 10005

	// ========== Record Store Errors (11000-11999) ==========

	DatabaseError     ErrorCode = 11000
	RecordNotFound    ErrorCode = 11001
	TransactionFailed ErrorCode = 11002

	// ========== Blob / Cache / Events Errors (12000-12999) ==========

	StorageError  ErrorCode = 12000
	BlobNotFound  ErrorCode = 12001
	CacheError    ErrorCode = 12100
	PublishFailed ErrorCode = 12200

	// ========== Grading Pipeline Errors (13000-13999) ==========

	SubmissionNotFound ErrorCode = 13000
	GraderNotFound     ErrorCode = 13001
	AttemptNotFound    ErrorCode = 13002
	AttemptFinished    ErrorCode = 13003

	ScoringFailed    ErrorCode = 13100
	ScoringTimeout   ErrorCode = 13101
	BadScoringOutput ErrorCode = 13102
	AttemptAborted   ErrorCode = 13103
	DirtyFailure     ErrorCode = 13104
	ScoringDirError  ErrorCode = 13105
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:            "Success",
	InternalError:      "Internal error",
	InvalidParams:      "Invalid parameters",
	NotFound:           "Resource not found",
	Timeout:            "Operation timed out",
	ServiceUnavailable: "Service temporarily unavailable",

	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	StorageError:  "Blob storage operation failed",
	BlobNotFound:  "Blob not found",
	CacheError:    "Cache operation failed",
	PublishFailed: "Failed to publish event",

	SubmissionNotFound: "Submission not found",
	GraderNotFound:     "Data grader not found",
	AttemptNotFound:    "Grading attempt not found",
	AttemptFinished:    "Grading attempt already finished",

	ScoringFailed:    "Scoring script failed",
	ScoringTimeout:   "Scoring script timed out",
	BadScoringOutput: "Bad scoring output",
	AttemptAborted:   "Grading attempt aborted",
	DirtyFailure:     "Dirty grading failure",
	ScoringDirError:  "Scoring directory preparation failed",
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
	switch c {
	case Success:
		return 200
	case InvalidParams:
		return 400
	case NotFound, RecordNotFound, BlobNotFound,
		SubmissionNotFound, GraderNotFound, AttemptNotFound:
		return 404
	case AttemptFinished:
		return 409
	case ServiceUnavailable:
		return 503
	default:
		return 500
	}
}
