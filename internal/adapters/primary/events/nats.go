package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/ports"
)

// Subjects published by the identity service when a member changes.
const (
	SubjectUserUpdated = "identity.user.updated"
	SubjectUserDeleted = "identity.user.deleted"
)

const handleTimeout = 5 * time.Second

type memberChangedEvent struct {
	UserID string `json:"user_id"`
}

type EventHandler struct {
	profiles ports.ProfileInvalidator
}

func NewEventHandler(profiles ports.ProfileInvalidator) *EventHandler {
	return &EventHandler{profiles: profiles}
}

// Subscribe registers the handler on every member-change subject.
func (h *EventHandler) Subscribe(nc *nats.Conn) ([]*nats.Subscription, error) {
	subs := make([]*nats.Subscription, 0, 2)
	for _, subject := range []string{SubjectUserUpdated, SubjectUserDeleted} {
		sub, err := nc.Subscribe(subject, h.HandleMemberChanged)
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// HandleMemberChanged drops the cached profile so the next page reloads it.
func (h *EventHandler) HandleMemberChanged(msg *nats.Msg) {
	// Trace context comes with the message headers
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
	ctx, span := otel.Tracer("board-service").Start(ctx, "process_member_changed",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", msg.Subject)))
	defer span.End()

	var event memberChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil || event.UserID == "" {
		if err != nil {
			span.RecordError(err)
		}
		slog.Error("❌ Invalid member event", "subject", msg.Subject, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := h.profiles.Invalidate(ctx, event.UserID); err != nil {
		span.RecordError(err)
		slog.Error("❌ Profile invalidation failed", "user_id", event.UserID, "error", err)
		return
	}
	slog.Debug("profile invalidated", "user_id", event.UserID, "subject", msg.Subject)
}
