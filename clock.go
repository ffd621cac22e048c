package goVault

import "time"

// Clock supplies the current time to every time-dependent component. Tests inject
// a fixed or stepping clock through [Builder.WithClock].
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a plain function to [Clock].
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
