// Package progression maps cumulative experience to levels.
//
// The threshold for level L is floor(100 * 1.5^(L-1)). Thresholds grow by
// half each level, so LevelFor runs in O(log xp).
package progression

import "math"

const (
	baseThreshold = 100
	growth        = 1.5
)

// Progress describes where an experience total sits on the level curve.
type Progress struct {
	Level    int `json:"level"`
	Current  int `json:"current"`
	Required int `json:"required"`
}

// Fraction returns Current/Required in [0, 1).
func (p Progress) Fraction() float64 {
	if p.Required <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Required)
}

// ThresholdForLevel returns the experience needed to finish level. Levels
// below 1 are treated as 1.
func ThresholdForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(baseThreshold * math.Pow(growth, float64(level-1))))
}

// LevelFor computes the level reached with xp cumulative experience.
// Negative totals count as zero.
func LevelFor(xp int) Progress {
	if xp < 0 {
		xp = 0
	}
	level := 1
	remaining := xp
	for {
		need := ThresholdForLevel(level)
		if remaining < need {
			return Progress{Level: level, Current: remaining, Required: need}
		}
		remaining -= need
		level++
	}
}

// LevelsGained returns how many levels separate two experience totals.
func LevelsGained(before, after int) int {
	gained := LevelFor(after).Level - LevelFor(before).Level
	if gained < 0 {
		return 0
	}
	return gained
}
