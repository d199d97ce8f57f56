package mediatime

import (
	"errors"
	"testing"
	"time"
)

func TestFromRational(t *testing.T) {
	tests := []struct {
		name    string
		ts      int64
		base    Rational
		want    Time
		wantErr error
	}{
		{"thirds", 30, Rational{1, 3}, 10_000, nil},
		{"mp4 timescale", 90_000, Rational{1, 90_000}, 1_000, nil},
		{"truncates", 1, Rational{1, 3}, 333, nil},
		{"large ticks", 1 << 40, Rational{1, 1_000_000}, Time((int64(1) << 40) / 1000), nil},
		{"zero numerator", 10, Rational{0, 1}, 0, ErrTimebaseNumeratorMissing},
		{"zero denominator", 10, Rational{1, 0}, 0, ErrTimebaseDenominatorMissing},
		{"negative denominator", 10, Rational{1, -5}, 0, ErrTimebaseDenominatorInvalid},
		{"overflow", 1 << 62, Rational{1000, 1}, 0, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromRational(tt.ts, tt.base)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFromRational_Seconds(t *testing.T) {
	got, err := FromRational(30, Rational{Num: 1, Den: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Seconds() != 10 {
		t.Errorf("expected 10 seconds, got %d", got.Seconds())
	}
}

func TestTime_String(t *testing.T) {
	tests := []struct {
		in   Time
		want string
	}{
		{0, "00:00.000"},
		{1357, "00:01.357"},
		{62_005, "01:02.005"},
		{3_599_999, "59:59.999"},
		{3_600_000, "01:00:00.000"},
		{36_610_042, "10:10:10.042"},
		{-1500, "-00:01.500"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Time(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTime_Seconds(t *testing.T) {
	if got := FromMillis(1357).Seconds(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := FromSeconds(42).Milliseconds(); got != 42_000 {
		t.Errorf("expected 42000, got %d", got)
	}
	if got := FromDuration(1500 * time.Millisecond); got != 1500 {
		t.Errorf("expected 1500, got %d", got)
	}
	if got := FromMillis(2500).Duration(); got != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", got)
	}
}

func TestTime_Ordering(t *testing.T) {
	a, b := FromMillis(100), FromMillis(200)

	if !a.Before(b) || a.After(b) {
		t.Error("expected a before b")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Error("unexpected Compare results")
	}
	if b.Sub(a) != 100 || a.Add(a) != b {
		t.Error("unexpected arithmetic results")
	}
	if !Time(0).IsZero() || a.IsZero() {
		t.Error("unexpected IsZero results")
	}
}

func TestTime_CeilDiv(t *testing.T) {
	tests := []struct {
		t, step Time
		want    int64
	}{
		{10_000, 1_000, 10},
		{10_001, 1_000, 11},
		{999, 1_000, 1},
		{0, 1_000, 0},
	}

	for _, tt := range tests {
		if got := tt.t.CeilDiv(tt.step); got != tt.want {
			t.Errorf("%d.CeilDiv(%d) = %d, want %d", tt.t, tt.step, got, tt.want)
		}
	}
}
