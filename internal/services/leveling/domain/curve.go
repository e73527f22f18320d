// Package domain implements the XP ingestion and leveling engine.
package domain

import "math"

// Curve maps cumulative XP to levels. Implementations must be pure and
// defined for every non-negative XP total.
type Curve interface {
	// Level returns the level reached at the given XP total.
	Level(xp int64) int
	// XPFloor returns the XP total at which the given level begins.
	XPFloor(level int) int64
}

// QuadraticCurve is the production curve: level = floor(sqrt(xp / 100)).
// Each level span therefore widens by 200 XP over the previous one.
type QuadraticCurve struct{}

// Level implements Curve.
func (QuadraticCurve) Level(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(xp) / 100))
}

// XPFloor implements Curve.
func (QuadraticCurve) XPFloor(level int) int64 {
	if level <= 0 {
		return 0
	}
	l := int64(level)
	return l * l * 100
}

// Stats captures the derived leveling fields for one XP total.
type Stats struct {
	Level    int
	XPNeeded int64
	// Progress is the percentage through the current level, rounded to
	// two decimals and always below 100.
	Progress float64
}

// ComputeStats derives level, XP needed for the next level and progress
// through the current level from a cumulative XP total. Negative totals are
// treated as zero.
func ComputeStats(curve Curve, xp int64) Stats {
	if curve == nil {
		curve = QuadraticCurve{}
	}
	if xp < 0 {
		xp = 0
	}

	level := curve.Level(xp)
	floor := curve.XPFloor(level)
	ceil := curve.XPFloor(level + 1)

	// The span is strictly positive for every level on a sane curve, so
	// the division below cannot blow up.
	span := ceil - floor
	progress := float64(xp-floor) / float64(span) * 100
	progress = math.Round(progress*100) / 100
	if progress >= 100 {
		// Rounding the last XP point of a wide level can land on a full
		// bar; the member has not levelled yet, so report just under.
		progress = 99.99
	}

	return Stats{
		Level:    level,
		XPNeeded: ceil - xp,
		Progress: progress,
	}
}
