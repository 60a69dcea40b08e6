package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// Discriminant values of the position union on the wire.
const (
	posTypeCreatedAt = "createdAtPos"
	posTypeView      = "viewPos"
)

var tokenEncoding = base64.RawURLEncoding.Strict()

// Wire DTOs. The domain stays free of JSON tags.
type cursorDTO struct {
	Strategy string      `json:"strategy"`
	Pos      positionDTO `json:"pos"`
}

type positionDTO struct {
	Type      string     `json:"type"`
	ID        string     `json:"id"`
	CreatedAt *time.Time `json:"createdAt"`
	Views     *int64     `json:"views,omitempty"`
}

// CursorCodec turns cursors into opaque, query-string safe tokens and back.
// Tokens are not signed: they only need to round-trip exactly.
type CursorCodec struct{}

func NewCursorCodec() CursorCodec {
	return CursorCodec{}
}

func (CursorCodec) Encode(c domain.Cursor) (string, error) {
	if c.Position == nil || c.Position.Strategy() != c.Strategy {
		return "", fmt.Errorf("cursor: position does not belong to strategy %q", c.Strategy)
	}

	dto := cursorDTO{Strategy: string(c.Strategy)}
	switch p := c.Position.(type) {
	case domain.CreatedAtPosition:
		at := p.CreatedAt.UTC()
		dto.Pos = positionDTO{Type: posTypeCreatedAt, ID: p.ID, CreatedAt: &at}
	case domain.ViewPosition:
		at := p.CreatedAt.UTC()
		views := p.Views
		dto.Pos = positionDTO{Type: posTypeView, ID: p.ID, CreatedAt: &at, Views: &views}
	}

	raw, err := json.Marshal(dto)
	if err != nil {
		return "", fmt.Errorf("cursor: marshal: %w", err)
	}
	return tokenEncoding.EncodeToString(raw), nil
}

// Decode parses a token and checks it was issued for the wanted strategy.
// Every failure wraps domain.ErrInvalidCursor.
func (CursorCodec) Decode(token string, want domain.Strategy) (domain.Cursor, error) {
	if token == "" {
		return domain.Cursor{}, invalidCursor("empty token")
	}

	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return domain.Cursor{}, invalidCursor("bad encoding")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var dto cursorDTO
	if err := dec.Decode(&dto); err != nil {
		return domain.Cursor{}, invalidCursor("bad payload")
	}
	if _, err := dec.Token(); err != io.EOF {
		return domain.Cursor{}, invalidCursor("trailing data")
	}

	strategy := domain.Strategy(dto.Strategy)
	if !strategy.Valid() {
		return domain.Cursor{}, invalidCursor("unknown strategy")
	}
	if strategy != want {
		return domain.Cursor{}, invalidCursor(fmt.Sprintf("issued for %s, requested %s", strategy, want))
	}

	pos, err := dto.Pos.toDomain(strategy)
	if err != nil {
		return domain.Cursor{}, err
	}
	return domain.Cursor{Strategy: strategy, Position: pos}, nil
}

func (p positionDTO) toDomain(strategy domain.Strategy) (domain.Position, error) {
	if p.ID == "" || p.CreatedAt == nil || p.CreatedAt.IsZero() {
		return nil, invalidCursor("incomplete position")
	}
	// Post and comment ids are UUIDs in every store.
	parsed, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, invalidCursor("bad id")
	}
	id := parsed.String()
	at := p.CreatedAt.UTC()

	switch {
	case p.Type == posTypeCreatedAt && strategy == domain.StrategyRecent:
		if p.Views != nil {
			return nil, invalidCursor("unexpected views")
		}
		return domain.CreatedAtPosition{ID: id, CreatedAt: at}, nil
	case p.Type == posTypeView && strategy == domain.StrategyPopular:
		if p.Views == nil || *p.Views < 0 {
			return nil, invalidCursor("bad views")
		}
		return domain.ViewPosition{ID: id, CreatedAt: at, Views: *p.Views}, nil
	default:
		return nil, invalidCursor(fmt.Sprintf("position %q does not match strategy %s", p.Type, strategy))
	}
}

func invalidCursor(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidCursor, reason)
}
