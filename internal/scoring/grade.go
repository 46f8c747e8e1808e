package scoring

import (
	"fmt"
	"strconv"
	"strings"
)

// Band maps a minimum percentage to a letter grade.
type Band struct {
	Min    float64
	Letter string
}

// GradeScale is an ordered set of grade bands plus a fallback letter for
// anything below the lowest band. Thresholds are deployment configuration,
// not hardcoded policy.
type GradeScale struct {
	Bands    []Band
	Fallback string
}

// DefaultScale returns the stock scale: ≥80 A, ≥70 B, ≥60 C, else D.
func DefaultScale() GradeScale {
	return GradeScale{
		Bands:    []Band{{80, "A"}, {70, "B"}, {60, "C"}},
		Fallback: "D",
	}
}

// Grade returns the letter for a percentage.
func (s GradeScale) Grade(percentage float64) string {
	for _, b := range s.Bands {
		if percentage >= b.Min {
			return b.Letter
		}
	}
	return s.Fallback
}

// ParseScale parses a scale spec like "80:A,70:B,60:C,D". Entries are
// "min:letter" pairs in descending order; the final bare letter is the
// fallback. An empty spec yields the default scale.
func ParseScale(spec string) (GradeScale, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultScale(), nil
	}

	scale := GradeScale{}
	parts := strings.Split(spec, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return GradeScale{}, fmt.Errorf("empty grade band at position %d", i)
		}

		min, letter, found := strings.Cut(part, ":")
		if !found {
			if i != len(parts)-1 {
				return GradeScale{}, fmt.Errorf("fallback grade %q must be last", part)
			}
			scale.Fallback = part
			continue
		}

		threshold, err := strconv.ParseFloat(strings.TrimSpace(min), 64)
		if err != nil {
			return GradeScale{}, fmt.Errorf("invalid grade threshold %q: %w", min, err)
		}
		if letter = strings.TrimSpace(letter); letter == "" {
			return GradeScale{}, fmt.Errorf("missing letter for threshold %v", threshold)
		}
		if n := len(scale.Bands); n > 0 && scale.Bands[n-1].Min <= threshold {
			return GradeScale{}, fmt.Errorf("grade thresholds must be strictly descending")
		}
		scale.Bands = append(scale.Bands, Band{Min: threshold, Letter: letter})
	}

	if scale.Fallback == "" {
		return GradeScale{}, fmt.Errorf("grade scale %q has no fallback letter", spec)
	}
	return scale, nil
}
