package display

import "errors"

var (
	// ErrWindowGone is returned when a request targets a window that no longer exists.
	ErrWindowGone = errors.New("window no longer exists")

	// ErrGrabFailed is returned when the server refuses a pointer grab.
	ErrGrabFailed = errors.New("pointer grab failed")
)

// IgnoreGone discards ErrWindowGone and returns any other error unchanged.
// Call sites that race with client destruction use it instead of checking by hand.
func IgnoreGone(err error) error {
	if errors.Is(err, ErrWindowGone) {
		return nil
	}
	return err
}
