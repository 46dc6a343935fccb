package middleware

import (
	"context"
	"strings"
	"unicode"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

// DefaultMaxNameLength is the rune limit applied by NewNameMiddleware when
// the given limit is not positive.
const DefaultMaxNameLength = 100

type nameMiddleware struct {
	ports.SaveStore
	max int
}

// NewNameMiddleware normalizes save names before they reach the store:
// control characters are dropped, whitespace runs collapse to one space and
// the result is cut to max runes.
func NewNameMiddleware(max int) Middleware {
	if max <= 0 {
		max = DefaultMaxNameLength
	}
	return func(next ports.SaveStore) ports.SaveStore {
		return &nameMiddleware{SaveStore: next, max: max}
	}
}

func (m *nameMiddleware) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	snap.SaveName = normalizeName(snap.SaveName, m.max)
	return m.SaveStore.Create(ctx, snap)
}

func normalizeName(name string, max int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) > max {
		cleaned = strings.TrimSpace(string(runes[:max]))
	}
	return cleaned
}
