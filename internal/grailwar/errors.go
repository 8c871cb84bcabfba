package grailwar

import (
	"errors"
	"fmt"
	"time"
)

// Workflow rejection reasons. All are user-visible command failures, not
// process faults; handlers render them as rejection messages.
var (
	ErrNotRegistered = errors.New("member is not registered")
	ErrSelfChallenge = errors.New("cannot challenge yourself")
	ErrNotOwner      = errors.New("servant belongs to another member")
	ErrServantLimit  = errors.New("servant slot limit reached")
	ErrUnknownItem     = errors.New("unknown item")
	ErrNotEquippable   = errors.New("item grants no stat and cannot be equipped")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// CooldownError reports an action blocked until a point in time.
type CooldownError struct {
	Action string
	Until  time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown until %s", e.Action, e.Until.Format(time.RFC3339))
}

// IsCooldown reports whether err is a cooldown rejection, returning the
// blocking expiry when it is.
func IsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
