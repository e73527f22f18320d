package domain

import (
	"math"
	"testing"
)

func TestComputeStatsTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		xp           int64
		wantLevel    int
		wantNeeded   int64
		wantProgress float64
	}{
		{0, 0, 100, 0},
		{1, 0, 99, 1},
		{50, 0, 50, 50},
		{99, 0, 1, 99},
		{100, 1, 300, 0},
		{150, 1, 250, 16.67},
		{399, 1, 1, 99.67},
		{400, 2, 500, 0},
		{899, 2, 1, 99.8},
		{900, 3, 700, 0},
		{1000, 3, 600, 14.29},
		{10000, 10, 2100, 0},
	}
	for _, tc := range cases {
		got := ComputeStats(QuadraticCurve{}, tc.xp)
		if got.Level != tc.wantLevel {
			t.Fatalf("xp %d: level = %d, want %d", tc.xp, got.Level, tc.wantLevel)
		}
		if got.XPNeeded != tc.wantNeeded {
			t.Fatalf("xp %d: needed = %d, want %d", tc.xp, got.XPNeeded, tc.wantNeeded)
		}
		if math.Abs(got.Progress-tc.wantProgress) > 1e-9 {
			t.Fatalf("xp %d: progress = %v, want %v", tc.xp, got.Progress, tc.wantProgress)
		}
	}
}

func TestComputeStatsNegativeXPTreatedAsZero(t *testing.T) {
	t.Parallel()

	got := ComputeStats(QuadraticCurve{}, -10)
	if got.Level != 0 || got.XPNeeded != 100 || got.Progress != 0 {
		t.Fatalf("unexpected stats for negative xp: %+v", got)
	}
}

func TestLevelBracketsContainXP(t *testing.T) {
	t.Parallel()

	curve := QuadraticCurve{}
	for xp := int64(0); xp < 50_000; xp += 7 {
		level := curve.Level(xp)
		if floor := curve.XPFloor(level); floor > xp {
			t.Fatalf("xp %d: floor %d above total", xp, floor)
		}
		if ceil := curve.XPFloor(level + 1); xp >= ceil {
			t.Fatalf("xp %d: total at or above ceiling %d", xp, ceil)
		}
	}
}

func TestLevelIsMonotonic(t *testing.T) {
	t.Parallel()

	curve := QuadraticCurve{}
	prev := curve.Level(0)
	for xp := int64(1); xp < 20_000; xp++ {
		level := curve.Level(xp)
		if level < prev {
			t.Fatalf("level decreased from %d to %d at xp %d", prev, level, xp)
		}
		prev = level
	}
}

func TestProgressStaysBelowFullBar(t *testing.T) {
	t.Parallel()

	for xp := int64(0); xp < 100_000; xp += 13 {
		got := ComputeStats(QuadraticCurve{}, xp)
		if got.Progress < 0 || got.Progress >= 100 {
			t.Fatalf("xp %d: progress %v outside [0, 100)", xp, got.Progress)
		}
	}

	// The last XP point of a wide level rounds up to a full bar; the
	// clamp keeps it just under.
	wide := ComputeStats(QuadraticCurve{}, 1_102_499)
	if wide.Level != 104 {
		t.Fatalf("expected level 104, got %d", wide.Level)
	}
	if wide.Progress >= 100 {
		t.Fatalf("progress %v reached full bar", wide.Progress)
	}
}
