// Package entrynumber handles the human-readable case identifiers of form R-<year>-<sequence>.
package entrynumber

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const Prefix = "R"

// SequenceKind is the counter name used when allocating case numbers.
const SequenceKind = "reparacion"

type Number struct {
	Year int
	Seq  int
}

// Format renders the canonical form with the sequence padded to three digits.
func Format(year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", Prefix, year, seq)
}

func (n Number) String() string {
	return Format(n.Year, n.Seq)
}

// Pattern matches the number regardless of zero padding.
func (n Number) Pattern() string {
	return fmt.Sprintf(`^%s-%d-0*%d$`, Prefix, n.Year, n.Seq)
}

var (
	dashRuns = regexp.MustCompile(`-{2,}`)
	parseRe  = regexp.MustCompile(`^(?:R-?)?(\d{4})-(\d+)$`)
)

// Normalize upper-cases the candidate and turns whitespace runs into single
// dashes, so "r - 2025 - 7" becomes "R-2025-7".
func Normalize(candidate string) string {
	s := strings.ToUpper(strings.Join(strings.Fields(candidate), "-"))
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Parse reads a normalized candidate. The R prefix is optional.
func Parse(normalized string) (Number, bool) {
	m := parseRe.FindStringSubmatch(normalized)
	if m == nil {
		return Number{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return Number{}, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil || seq <= 0 {
		return Number{}, false
	}
	return Number{Year: year, Seq: seq}, true
}

// Variants lists the exact forms worth trying for a candidate, in order:
// the normalized input, then unpadded, 3-digit and 4-digit sequences.
func Variants(candidate string) []string {
	norm := Normalize(candidate)
	if norm == "" {
		return nil
	}
	out := []string{norm}
	n, ok := Parse(norm)
	if !ok {
		return out
	}
	for _, v := range []string{
		fmt.Sprintf("%s-%d-%d", Prefix, n.Year, n.Seq),
		fmt.Sprintf("%s-%d-%03d", Prefix, n.Year, n.Seq),
		fmt.Sprintf("%s-%d-%04d", Prefix, n.Year, n.Seq),
	} {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
