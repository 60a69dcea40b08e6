package domain

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects one of the total orders a listing can be paged by.
type Strategy string

const (
	// StrategyRecent orders by (created_at DESC, id DESC).
	StrategyRecent Strategy = "RECENT"
	// StrategyPopular orders by (views DESC, created_at DESC, id DESC).
	StrategyPopular Strategy = "POPULAR"
)

// ParseStrategy accepts the query-string form of a strategy. Empty means RECENT.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", StrategyRecent:
		return StrategyRecent, nil
	case StrategyPopular:
		return StrategyPopular, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, raw)
	}
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	return s == StrategyRecent || s == StrategyPopular
}

// SortKey holds every column any strategy may sort on.
type SortKey struct {
	ID        string
	CreatedAt time.Time
	Views     int64
}

// Before reports whether a sorts strictly before b in the strategy's descending order.
// ID is always the last term, which makes the order total.
func (s Strategy) Before(a, b SortKey) bool {
	if s == StrategyPopular && a.Views != b.Views {
		return a.Views > b.Views
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// PositionOf captures the strategy-specific part of a key, i.e. what the next cursor carries.
func (s Strategy) PositionOf(k SortKey) Position {
	if s == StrategyPopular {
		return ViewPosition{ID: k.ID, CreatedAt: k.CreatedAt.UTC(), Views: k.Views}
	}
	return CreatedAtPosition{ID: k.ID, CreatedAt: k.CreatedAt.UTC()}
}

// Position is the last-seen key of a page. It is a closed union: CreatedAtPosition or ViewPosition.
type Position interface {
	Strategy() Strategy
	SortKey() SortKey
	isPosition()
}

// CreatedAtPosition is the RECENT variant.
type CreatedAtPosition struct {
	ID        string
	CreatedAt time.Time
}

func (CreatedAtPosition) Strategy() Strategy { return StrategyRecent }
func (p CreatedAtPosition) SortKey() SortKey {
	return SortKey{ID: p.ID, CreatedAt: p.CreatedAt}
}
func (CreatedAtPosition) isPosition() {}

// ViewPosition is the POPULAR variant.
type ViewPosition struct {
	ID        string
	CreatedAt time.Time
	Views     int64
}

func (ViewPosition) Strategy() Strategy { return StrategyPopular }
func (p ViewPosition) SortKey() SortKey {
	return SortKey{ID: p.ID, CreatedAt: p.CreatedAt, Views: p.Views}
}
func (ViewPosition) isPosition() {}

// Cursor is the decoded form of a pagination token. Clients only ever see it encoded.
type Cursor struct {
	Strategy Strategy
	Position Position
}
