package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrStaffAccessOnly   ErrCode = "STAFF_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrRoomInactive        ErrCode = "ROOM_INACTIVE"
	ErrStudentInactive     ErrCode = "STUDENT_INACTIVE"
	ErrAccessDenied        ErrCode = "ACCESS_DENIED"
	ErrDuplicateAttempt    ErrCode = "DUPLICATE_ATTEMPT"
	ErrAttemptLimitReached ErrCode = "ATTEMPT_LIMIT_REACHED"
	ErrInvalidState        ErrCode = "INVALID_STATE"
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrNotRoomOwner        ErrCode = "NOT_ROOM_OWNER"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrStaffAccessOnly:
		return "This resource is restricted to teachers and administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record is still referenced by other data and cannot be deleted."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrRoomInactive:
		return "This exam room is not currently open."
	case ErrStudentInactive:
		return "Your account is suspended. Contact your teacher."
	case ErrAccessDenied:
		return "You are not allowed to enter this exam room."
	case ErrDuplicateAttempt:
		return "You have already completed this exam."
	case ErrAttemptLimitReached:
		return "You have used all allowed attempts for this exam."
	case ErrInvalidState:
		return "This attempt is already closed."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrNotRoomOwner:
		return "You are not the owner of this exam room."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
