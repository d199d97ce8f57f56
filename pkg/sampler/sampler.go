// Package sampler decides which decoded frames an output consumes.
package sampler

import "github.com/user/vidsprite/pkg/mediatime"

// Sampler gates frames by a minimum spacing on the media timeline.
// The first frame is always due; after that a frame is due once at least
// Interval has elapsed since the last accepted frame.
type Sampler struct {
	interval mediatime.Time
	last     mediatime.Time
	count    int
}

// New creates a Sampler with the given interval.
// A zero or negative interval accepts every frame.
func New(interval mediatime.Time) *Sampler {
	return &Sampler{interval: interval}
}

// Due reports whether a frame at ts should be accepted. It does not change state.
func (s *Sampler) Due(ts mediatime.Time) bool {
	if s.count == 0 {
		return true
	}
	return ts.Sub(s.last) >= s.interval
}

// Accept records ts as the most recently accepted frame.
func (s *Sampler) Accept(ts mediatime.Time) {
	s.last = ts
	s.count++
}

// Count returns the number of accepted frames.
func (s *Sampler) Count() int {
	return s.count
}

// Last returns the timestamp of the last accepted frame and whether one exists.
func (s *Sampler) Last() (mediatime.Time, bool) {
	return s.last, s.count > 0
}

// Interval returns the configured spacing.
func (s *Sampler) Interval() mediatime.Time {
	return s.interval
}
