package repair

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"repairshop/internal/apperr"
	"repairshop/internal/entrynumber"
)

var ErrEntryNumberRequired = apperr.Validation("ENTRY_NUMBER_REQUIRED", "Número de ingreso requerido")

// LookupNotFound is the Detail attached to a failed lookup.
type LookupNotFound struct {
	Candidate string   `json:"candidate"`
	Tried     []string `json:"tried"`
}

// Lookup resolves a client-typed entry number. Exact variants are tried first,
// then a padding-insensitive pattern, then a substring search.
func Lookup(ctx context.Context, r Reader, candidate string) (*Case, error) {
	variants := entrynumber.Variants(candidate)
	if len(variants) == 0 {
		return nil, ErrEntryNumberRequired
	}

	tried := append([]string(nil), variants...)
	c, err := r.FindByEntryNumbers(ctx, variants)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	q := EntrySearch{Substring: variants[0]}
	if n, ok := entrynumber.Parse(variants[0]); ok {
		q = EntrySearch{Pattern: n.Pattern()}
		tried = append(tried, "~"+q.Pattern)
	} else {
		tried = append(tried, "*"+q.Substring+"*")
	}

	c, err = r.SearchEntryNumber(ctx, q)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	log.Info().Str("candidate", candidate).Strs("tried", tried).Msg("entry number lookup found no case")
	nf := apperr.NotFound("NOT_FOUND", "No se encontró reparación")
	nf.Detail = LookupNotFound{Candidate: candidate, Tried: tried}
	return nil, nf
}

// ResolveExact resolves a staff-supplied entry number through the padding
// variants only. There is no pattern or substring fallback, so a partial
// reference never selects some other client's case.
func ResolveExact(ctx context.Context, r Reader, candidate string) (*Case, error) {
	variants := entrynumber.Variants(candidate)
	if len(variants) == 0 {
		return nil, ErrEntryNumberRequired
	}
	c, err := r.FindByEntryNumbers(ctx, variants)
	if errors.Is(err, ErrNotFound) {
		nf := apperr.NotFound("NOT_FOUND", "No se encontró reparación")
		nf.Detail = LookupNotFound{Candidate: candidate, Tried: variants}
		return nil, nf
	}
	return c, err
}
