// Package clock abstracts wall-clock time so engines can be tested against
// a fixed instant.
package clock

import "time"

// Clock supplies the current instant in UTC.
type Clock interface {
	Now() time.Time
}

// System reads the real clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Test helper.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// At builds a fixed clock from an RFC 3339 instant, panicking on bad input.
// Test helper.
func At(rfc3339 string) Fixed {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		panic("clock: bad instant " + rfc3339)
	}
	return Fixed{T: t.UTC()}
}
