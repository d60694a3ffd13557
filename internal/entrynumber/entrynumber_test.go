package entrynumber

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_PadsToThreeDigits(t *testing.T) {
	assert.Equal(t, "R-2025-007", Format(2025, 7))
	assert.Equal(t, "R-2025-123", Format(2025, 123))
	assert.Equal(t, "R-2025-1234", Format(2025, 1234))
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"r-2025-7":        "R-2025-7",
		"  R-2025-007 ":   "R-2025-007",
		"r 2025 7":        "R-2025-7",
		"r - 2025 - 0007": "R-2025-0007",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestParse(t *testing.T) {
	n, ok := Parse("R-2025-0007")
	require.True(t, ok)
	assert.Equal(t, Number{Year: 2025, Seq: 7}, n)

	n, ok = Parse("2025-12")
	require.True(t, ok)
	assert.Equal(t, Number{Year: 2025, Seq: 12}, n)

	_, ok = Parse("X-2025-7")
	assert.False(t, ok)
	_, ok = Parse("R-2025-0")
	assert.False(t, ok)
}

func TestVariants_AllCandidatesReachCanonicalForm(t *testing.T) {
	for _, candidate := range []string{"r-2025-7", "R-2025-007", "R-2025-0007"} {
		v := Variants(candidate)
		assert.Contains(t, v, "R-2025-007", "candidate %q", candidate)
		assert.Contains(t, v, "R-2025-7", "candidate %q", candidate)
		assert.Contains(t, v, "R-2025-0007", "candidate %q", candidate)
	}
}

func TestVariants_NoDuplicatesAndInputFirst(t *testing.T) {
	v := Variants("R-2025-007")
	assert.Equal(t, []string{"R-2025-007", "R-2025-7", "R-2025-0007"}, v)
}

func TestVariants_UnparseableKeepsNormalizedOnly(t *testing.T) {
	assert.Equal(t, []string{"ABC"}, Variants(" abc "))
	assert.Nil(t, Variants("   "))
}

func TestPattern_IgnoresPadding(t *testing.T) {
	re := regexp.MustCompile(Number{Year: 2025, Seq: 7}.Pattern())
	assert.True(t, re.MatchString("R-2025-7"))
	assert.True(t, re.MatchString("R-2025-007"))
	assert.True(t, re.MatchString("R-2025-00007"))
	assert.False(t, re.MatchString("R-2025-17"))
	assert.False(t, re.MatchString("R-2024-007"))
}
