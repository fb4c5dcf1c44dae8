package apperr

var (
	ErrUserNotFound         = NotFound("user not found")
	ErrEmailTaken           = AlreadyExists("email already registered")
	ErrInvalidCredentials   = Unauthorized("invalid email or password")
	ErrInvalidToken         = Unauthorized("invalid token")
	ErrSessionNotFound      = Unauthorized("session not found")
	ErrMatchNotFound        = NotFound("match not found")
	ErrNotMatchMember       = Forbidden("user is not a member of this match")
	ErrEmptyMessage         = InvalidArg("message content cannot be empty")
	ErrMessageTooLong       = InvalidArg("message is too long")
	ErrCandidateNotQueued   = FailedPrecondition("candidate is not in the discover queue")
	ErrSelfSwipe            = InvalidArg("cannot swipe on yourself")
	ErrAttributeNotFound    = NotFound("profile attribute not found")
	ErrProfileHidden        = Forbidden("profile is not visible to this user")
	ErrUnknownAttributeKind = InvalidArg("unknown profile attribute kind")
	ErrPhotoStorageDisabled = FailedPrecondition("photo staging storage is not configured")
	ErrInvalidStagingKey    = InvalidArg("staging key does not belong to user")
	ErrUploadNotFound       = NotFound("staged upload not found")
	ErrUploadCompleted      = AlreadyExists("staged upload already completed")
)

func ErrUpstream(cause error) error {
	return Unavailable("skillswap backend request failed", cause)
}
