package otp

import "time"

type Observer interface {
	ObserveIssue(outcome string, elapsed time.Duration)
	ObserveVerify(outcome string, elapsed time.Duration)
	ObserveNotify(err error)
	ObserveSweep(deleted int64, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveIssue(string, time.Duration)  {}
func (nopObserver) ObserveVerify(string, time.Duration) {}
func (nopObserver) ObserveNotify(error)                 {}
func (nopObserver) ObserveSweep(int64, error)           {}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
