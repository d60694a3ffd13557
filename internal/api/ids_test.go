package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	cases := map[string]int64{
		`42`:    42,
		`"42"`:  42,
		`" 7 "`: 7,
		`null`:  0,
		``:      0,
		`""`:    0,
	}
	for in, want := range cases {
		got, err := ParseID(json.RawMessage(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{`"abc"`, `-3`, `0`, `1.5`, `{}`, `"`} {
		_, err := ParseID(json.RawMessage(bad))
		assert.ErrorIs(t, err, ErrInvalidID, bad)
	}
}
