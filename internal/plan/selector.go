package plan

import (
	"math"
	"sort"
)

// Selection is the outcome of validating raw candidates into a final
// insertion list. UnderConstrained is a warning, not a failure: the plan is
// still usable with fewer than MinInsertions insertions.
type Selection struct {
	Insertions       []Insertion
	UnderConstrained bool
	Filtered         int // candidates discarded by the validity filter
	Rejected         int // candidates rejected by the spacing check
}

// Select converts an unordered, possibly-invalid set of oracle candidates
// into a list that satisfies every plan invariant, preserving as much of the
// oracle's judgment as possible:
//
//  1. discard candidates referencing unknown clips or lying outside
//     [0, arollDuration]
//  2. clamp each duration into [MinInsertionSec, MaxInsertionSec]
//  3. order by confidence descending, earlier start first on ties
//  4. greedily accept candidates that keep MinGapSec clearance to every
//     already-accepted insertion, up to MaxInsertions
//  5. re-sort the accepted set by start time
//
// The ordering is deterministic: identical input always yields an identical
// insertion list. Clip reuse across insertions is allowed.
func Select(candidates []Insertion, clips []BRollClip, arollDuration float64) (*Selection, error) {
	known := make(map[string]bool, len(clips))
	for _, c := range clips {
		known[c.ID] = true
	}

	valid := make([]Insertion, 0, len(candidates))
	filtered := 0
	for _, cand := range candidates {
		if !known[cand.BRollID] || !finite(cand.StartSec) || !finite(cand.DurationSec) {
			filtered++
			continue
		}
		if cand.StartSec < 0 || cand.EndSec() > arollDuration {
			filtered++
			continue
		}

		cand.DurationSec = clampDuration(cand.DurationSec)
		// Growing a too-short candidate to the minimum can push it past the
		// end of the A-roll; the interval invariant wins over keeping it.
		if cand.EndSec() > arollDuration {
			filtered++
			continue
		}
		cand.Confidence = clamp(cand.Confidence, 0, 1)
		valid = append(valid, cand)
	}

	if len(valid) == 0 {
		return nil, ErrNoValidCandidates
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Confidence != valid[j].Confidence {
			return valid[i].Confidence > valid[j].Confidence
		}
		return valid[i].StartSec < valid[j].StartSec
	})

	accepted := make([]Insertion, 0, MaxInsertions)
	rejected := 0
	for _, cand := range valid {
		if len(accepted) == MaxInsertions {
			break
		}
		if compatible(cand, accepted) {
			accepted = append(accepted, cand)
		} else {
			rejected++
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].StartSec < accepted[j].StartSec
	})

	return &Selection{
		Insertions:       accepted,
		UnderConstrained: len(accepted) < MinInsertions,
		Filtered:         filtered,
		Rejected:         rejected,
	}, nil
}

// compatible reports whether cand keeps MinGapSec clearance to every accepted
// insertion. A negative gap is an overlap, so this covers both checks.
func compatible(cand Insertion, accepted []Insertion) bool {
	for _, a := range accepted {
		if cand.StartSec < a.EndSec()+MinGapSec && a.StartSec < cand.EndSec()+MinGapSec {
			return false
		}
	}
	return true
}

func clampDuration(d float64) float64 {
	return clamp(d, MinInsertionSec, MaxInsertionSec)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
