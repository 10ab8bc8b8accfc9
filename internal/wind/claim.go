package wind

import (
	"regexp"
	"strconv"
)

// Claim extraction patterns. A claim is a number with a knot unit tied to a
// crosswind cue, in either order. The cue-first pattern stays inside one
// sentence so values from a later clause are not attributed to the cue.
var claimPatterns = []*regexp.Regexp{
	// "crosswind ... 7.4 kt"
	regexp.MustCompile(`(?i)(?:crosswind|cross[\s-]wind|x-wind)[^.!?\n]*?(\d+(?:\.\d+)?)[\s-]*(?:kt|knots?)\b`),
	// "7.4 kt crosswind"
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)[\s-]*(?:kt|knots?)\s+(?:crosswind|cross[\s-]wind|x-wind)\b`),
}

// ExtractClaim scans text for the first numeric crosswind claim in knots.
// Returns nil when no claim is present.
func ExtractClaim(text string) *float64 {
	for _, re := range claimPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}
