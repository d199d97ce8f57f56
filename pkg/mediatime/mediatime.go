// Package mediatime provides a millisecond-resolution media timestamp.
package mediatime

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrTimebaseNumeratorMissing is returned when a time base has a zero numerator.
	ErrTimebaseNumeratorMissing = errors.New("mediatime: time base numerator missing")

	// ErrTimebaseDenominatorMissing is returned when a time base has a zero denominator.
	ErrTimebaseDenominatorMissing = errors.New("mediatime: time base denominator missing")

	// ErrTimebaseDenominatorInvalid is returned when a time base has a negative denominator.
	ErrTimebaseDenominatorInvalid = errors.New("mediatime: time base denominator invalid")

	// ErrOverflow is returned when a converted timestamp does not fit in 64 bits.
	ErrOverflow = errors.New("mediatime: timestamp overflow")
)

// Time is a point or span on the media timeline in milliseconds.
type Time int64

// Rational is a stream time base: one tick lasts Num/Den seconds.
type Rational struct {
	Num int64
	Den int64
}

// String returns the time base as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// FromMillis creates a Time from milliseconds.
func FromMillis(ms int64) Time {
	return Time(ms)
}

// FromSeconds creates a Time from whole seconds.
func FromSeconds(s int64) Time {
	return Time(s * 1000)
}

// FromDuration creates a Time from a time.Duration, truncating to milliseconds.
func FromDuration(d time.Duration) Time {
	return Time(d.Milliseconds())
}

// FromRational converts a timestamp expressed in ticks of base to milliseconds.
// The product 1000*ts*num is computed without intermediate overflow.
func FromRational(ts int64, base Rational) (Time, error) {
	if base.Num == 0 {
		return 0, ErrTimebaseNumeratorMissing
	}
	if base.Den == 0 {
		return 0, ErrTimebaseDenominatorMissing
	}
	if base.Den < 0 {
		return 0, fmt.Errorf("%w: %s", ErrTimebaseDenominatorInvalid, base)
	}

	v := big.NewInt(ts)
	v.Mul(v, big.NewInt(1000))
	v.Mul(v, big.NewInt(base.Num))
	v.Quo(v, big.NewInt(base.Den))
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %d ticks of %s", ErrOverflow, ts, base)
	}
	return Time(v.Int64()), nil
}

// Add returns t+d.
func (t Time) Add(d Time) Time {
	return t + d
}

// Sub returns t-u.
func (t Time) Sub(u Time) Time {
	return t - u
}

// Before reports whether t is earlier than u.
func (t Time) Before(u Time) bool {
	return t < u
}

// After reports whether t is later than u.
func (t Time) After(u Time) bool {
	return t > u
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or after u.
func (t Time) Compare(u Time) int {
	switch {
	case t < u:
		return -1
	case t > u:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether t is the origin of the timeline.
func (t Time) IsZero() bool {
	return t == 0
}

// Milliseconds returns t as an integer millisecond count.
func (t Time) Milliseconds() int64 {
	return int64(t)
}

// Seconds returns the whole seconds in t, truncated toward zero.
func (t Time) Seconds() int64 {
	return int64(t) / 1000
}

// Duration returns t as a time.Duration.
func (t Time) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

// String renders t as MM:SS.mmm, or HH:MM:SS.mmm from one hour on.
func (t Time) String() string {
	ms := int64(t)
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}

	millis := ms % 1000
	secs := (ms / 1000) % 60
	mins := (ms / 60_000) % 60
	hours := ms / 3_600_000

	if hours > 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, hours, mins, secs, millis)
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, mins, secs, millis)
}

// CeilDiv returns how many spans of length step are needed to cover t.
// step must be positive.
func (t Time) CeilDiv(step Time) int64 {
	if t <= 0 {
		return 0
	}
	return (int64(t) + int64(step) - 1) / int64(step)
}
