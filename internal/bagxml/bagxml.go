// Package bagxml maps the record-store models to and from their XML wire
// forms. Encoding is namespace-qualified and field-order stable; decoding
// matches local element names only, reads each field independently, and
// fails only when a required field is missing or unusable.
package bagxml

import (
	"fmt"
	"time"
)

const (
	BagNamespace      = "http://digital2.library.unt.edu/coda/bagxml/"
	QueueNamespace    = "http://digital2.library.unt.edu/coda/queuexml/"
	ValidateNamespace = "http://digital2.library.unt.edu/coda/validatexml/"
)

const (
	dateLayout      = "2006-01-02"
	queueTimeLayout = "2006-01-02T15:04:05Z"
	nodeTimeLayout  = "2006-01-02 15:04:05"
)

// now is indirected so decode defaults can be pinned in tests.
var now = time.Now

// FieldError reports a required field that could not be set during
// decode. The message matches what API clients have historically seen.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Unable to set '%s' attribute", e.Field)
}

// parseTime is tolerant of the layouts the store has accepted over the
// years: bare dates, the queue's zulu stamps, and RFC3339 timestamps.
func parseTime(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		queueTimeLayout,
		"2006-01-02T15:04:05",
		nodeTimeLayout,
		dateLayout,
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
