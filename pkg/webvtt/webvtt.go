// Package webvtt builds and serializes WebVTT cue tracks.
package webvtt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/ports"
)

// Header is the first line of every WebVTT file.
const Header = "WEBVTT"

const arrow = " --> "

var (
	// ErrInvalidCue is returned when a cue ends before it starts.
	ErrInvalidCue = errors.New("webvtt: cue end precedes start")

	// ErrOutOfOrder is returned when a cue starts before the previous one.
	ErrOutOfOrder = errors.New("webvtt: cue out of order")

	// ErrMalformed is returned by Parse for input that is not a WebVTT track.
	ErrMalformed = errors.New("webvtt: malformed track")
)

// Cue is a half-open interval [Start, End) on the media timeline with a text payload.
type Cue struct {
	Start   mediatime.Time
	End     mediatime.Time
	Payload string
}

// Track is an ordered list of cues.
type Track struct {
	cues []Cue
}

// NewTrack creates an empty track.
func NewTrack() *Track {
	return &Track{}
}

// Add appends a cue. Cues must be added in temporal order.
func (t *Track) Add(c Cue) error {
	if c.End.Before(c.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidCue, c.Start, c.End)
	}
	if n := len(t.cues); n > 0 && c.Start.Before(t.cues[n-1].Start) {
		return fmt.Errorf("%w: %s after %s", ErrOutOfOrder, c.Start, t.cues[n-1].Start)
	}
	t.cues = append(t.cues, c)
	return nil
}

// Len returns the number of cues.
func (t *Track) Len() int {
	return len(t.cues)
}

// Cues returns a copy of the cues in insertion order.
func (t *Track) Cues() []Cue {
	out := make([]Cue, len(t.cues))
	copy(out, t.cues)
	return out
}

// WriteTo serializes the track to w.
func (t *Track) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	write := func(s string) error {
		m, err := bw.WriteString(s)
		n += int64(m)
		return err
	}

	if err := write(Header + "\n\n"); err != nil {
		return n, err
	}
	for _, c := range t.cues {
		if err := write(c.Start.String() + arrow + c.End.String() + "\n" + c.Payload + "\n\n"); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Bytes returns the serialized track.
func (t *Track) Bytes() []byte {
	var buf bytes.Buffer
	t.WriteTo(&buf)
	return buf.Bytes()
}

// Save writes the serialized track to path in a single write.
func (t *Track) Save(fs ports.FileSystem, path string) error {
	return fs.WriteFile(path, t.Bytes())
}

// Parse reads a track written by WriteTo.
// Cue identifiers and settings are not supported.
func Parse(r io.Reader) (*Track, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if strings.TrimPrefix(strings.TrimSpace(sc.Text()), "\ufeff") != Header {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}

	t := NewTrack()
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		start, end, ok := strings.Cut(line, arrow)
		if !ok {
			return nil, fmt.Errorf("%w: expected timing line, got %q", ErrMalformed, line)
		}
		st, err := ParseTimestamp(start)
		if err != nil {
			return nil, err
		}
		et, err := ParseTimestamp(end)
		if err != nil {
			return nil, err
		}

		var payload []string
		for sc.Scan() {
			l := sc.Text()
			if strings.TrimSpace(l) == "" {
				break
			}
			payload = append(payload, l)
		}

		if err := t.Add(Cue{Start: st, End: et, Payload: strings.Join(payload, "\n")}); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseTimestamp parses MM:SS.mmm or HH:MM:SS.mmm.
func ParseTimestamp(s string) (mediatime.Time, error) {
	s = strings.TrimSpace(s)
	clock, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
	}
	ms, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
	}

	var total int64
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
		}
		if i > 0 && v > 59 {
			return 0, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
		}
		total = total*60 + v
	}
	return mediatime.FromMillis(total*1000 + ms), nil
}
