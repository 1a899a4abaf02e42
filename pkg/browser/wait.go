package browser

import (
	"errors"
	"time"
)

const pollInterval = 100 * time.Millisecond

var errPollExpired = errors.New("poll deadline expired")

// pollUntil calls check until it reports true, returns an error, or the
// deadline passes. check always runs at least once.
func pollUntil(deadline time.Time, check func() (bool, error)) error {
	for {
		ok, err := check()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errPollExpired
		}
		time.Sleep(pollInterval)
	}
}
