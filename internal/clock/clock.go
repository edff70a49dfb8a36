package clock

import "time"

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Fixed always returns the same instant. Advance moves it forward.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time {
	return f.T
}

// Advance moves the clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}
