package material

// ScoreRange bounds a score value: display precision in decimal digits and
// an inclusive maximum. Precision and max are never negative.
type ScoreRange struct {
	Precision int     `json:"precision"`
	Max       float64 `json:"max"`
}

// MergeRanges combines ranges for an aggregate score: the widest precision
// and the sum of the maximums. Merging nothing yields the zero range.
func MergeRanges(ranges []ScoreRange) ScoreRange {
	var merged ScoreRange
	for _, r := range ranges {
		if r.Precision > merged.Precision {
			merged.Precision = r.Precision
		}
		merged.Max += r.Max
	}
	return merged
}

// Clamp limits score to [0, Max].
func (r ScoreRange) Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > r.Max {
		return r.Max
	}
	return score
}
