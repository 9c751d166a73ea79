package sim

import "time"

// Timer is the cancellable handle behind every scheduled wake-up.
type Timer interface {
	Stop() bool
}

// TimerFactory abstracts time.AfterFunc so tests can drive the scheduler
// deterministically.
type TimerFactory interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realTimers struct{}

func (realTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealTimers schedules on the wall clock via time.AfterFunc.
func RealTimers() TimerFactory { return realTimers{} }
