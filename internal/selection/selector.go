// Package selection picks the transcript segments that become clips. The
// algorithm is pure and deterministic: identical scored input always yields
// identical output.
package selection

import "sort"

// Options bound what the selector may return.
type Options struct {
	MinScore        float64
	MinClipDuration float64
	MaxClipDuration float64
	MaxClipCount    int
}

// Scored is a candidate segment with its overall score. ID is opaque to the
// selector and carried through so callers can map picks back to stored rows.
type Scored struct {
	ID    int64
	Start float64
	End   float64
	Score float64
}

// Duration returns the candidate length in seconds.
func (s Scored) Duration() float64 {
	return s.End - s.Start
}

func (s Scored) overlaps(other Scored) bool {
	return s.Start < other.End && other.Start < s.End
}

// Select returns at most MaxClipCount non-overlapping segments, highest score
// first. Segments below MinScore or shorter than MinClipDuration are dropped.
// Segments longer than MaxClipDuration are truncated at their start rather
// than discarded, so a strong candidate is kept at clip length. When two
// qualifying segments overlap, the higher-scoring one wins and the loser is
// dropped entirely. Score ties break by earlier start, then shorter duration.
func Select(segments []Scored, opts Options) []Scored {
	if opts.MaxClipCount <= 0 {
		return nil
	}

	candidates := make([]Scored, 0, len(segments))
	for _, segment := range segments {
		if segment.Score < opts.MinScore {
			continue
		}
		if segment.End <= segment.Start {
			continue
		}
		if opts.MaxClipDuration > 0 && segment.Duration() > opts.MaxClipDuration {
			segment.End = segment.Start + opts.MaxClipDuration
		}
		if segment.Duration() < opts.MinClipDuration {
			continue
		}
		candidates = append(candidates, segment)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Duration() < b.Duration()
	})

	selected := make([]Scored, 0, opts.MaxClipCount)
	for _, candidate := range candidates {
		if len(selected) == opts.MaxClipCount {
			break
		}
		conflict := false
		for _, accepted := range selected {
			if candidate.overlaps(accepted) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		selected = append(selected, candidate)
	}
	return selected
}
