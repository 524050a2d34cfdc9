package usecase

import (
	"errors"
	"fmt"

	"repurposer/domain/model"
)

var (
	ErrPostNotFound            = errors.New("post not found")
	ErrPostNotPublishable      = errors.New("post is not ready to publish")
	ErrPublishInProgress       = errors.New("post is already being published")
	ErrNoConnectedAccount      = errors.New("no connected account")
	ErrInvalidAccount          = errors.New("invalid social account")
	ErrInvalidSchedule         = errors.New("invalid schedule")
	ErrScheduledPostNotFound   = errors.New("scheduled post not found")
	ErrReconnectRequired       = errors.New("account authorization expired")
	ErrDirectPostingNotAllowed = errors.New("direct posting is not available on your plan")
	ErrPlatformNotInPlan       = errors.New("platform is not available on your plan")
	ErrUsageLimitReached       = errors.New("You have reached your monthly repurpose limit. Upgrade to continue.")
	ErrInvalidRequest          = errors.New("invalid request")
)

// ReconnectError tells the user which account must be connected again. It
// matches ErrReconnectRequired with errors.Is.
type ReconnectError struct {
	Platform model.Platform
	Cause    error
}

func (e *ReconnectError) Error() string {
	name := e.Platform.DisplayName()
	return fmt.Sprintf("Your %s authorization has expired. Please reconnect your %s account.", name, name)
}

func (e *ReconnectError) Is(target error) bool { return target == ErrReconnectRequired }

func (e *ReconnectError) Unwrap() error { return e.Cause }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// IsClientError reports whether err stems from caller input rather than a
// failing dependency.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest, ErrInvalidSchedule, ErrInvalidAccount, ErrPostNotPublishable,
		ErrNoConnectedAccount, ErrReconnectRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
