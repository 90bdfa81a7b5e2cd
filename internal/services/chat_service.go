// Package services – ChatService
//
// This file implements ChatService, the façade the transport layer calls
// for everything room-scoped: posting, listing, and searching messages,
// edits and soft deletes, reactions, room creation, and typing signals.
// It is the only component that knows the cross-entity rules: a post by a
// registered user bumps that user's message counter and activity
// timestamp, and creating a previously unknown room bills the creator's
// session counter exactly once.
//
// Observability: the message paths are OpenTelemetry-instrumented; spans
// carry session identifiers (the session id doubles as the room secret, so
// it is attached only as an attribute on internal spans, never logged by
// this package).
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alphatexting/go-backend/internal/domain"
	"github.com/alphatexting/go-backend/internal/store"
)

// ChatService composes the identity store, the session registry, and the
// presence tracker into the operations exposed to the HTTP layer. No
// operation spans two sessions.
type ChatService struct {
	Users    *store.UserStore
	Sessions *store.SessionRegistry
	Presence *store.PresenceTracker

	// MaxMessageRunes caps posted and edited content by rune length.
	// Zero disables the cap.
	MaxMessageRunes int
}

// NewChatService constructs a ChatService over the given state components.
func NewChatService(users *store.UserStore, sessions *store.SessionRegistry, presence *store.PresenceTracker) *ChatService {
	return &ChatService{
		Users:           users,
		Sessions:        sessions,
		Presence:        presence,
		MaxMessageRunes: 2000,
	}
}

// CreateRoom ensures a room exists for sessionID. The call is idempotent;
// only the call that actually creates the room increments the creator's
// totalSessions counter, so re-creating (or racing on) the same id bills
// at most one session.
func (s *ChatService) CreateRoom(ctx context.Context, username, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if _, created := s.Sessions.LedgerFor(sessionID); created {
		s.Users.IncrementSessionCount(username)
		roomsCreated.Inc()
	}
	return nil
}

// PostMessage appends a message to the session's ledger. Rooms are created
// on first touch, an empty username posts as the anonymous author, and a
// reply_to id that does not resolve yields a plain message rather than an
// error. Posts by registered users update their activity timestamp and
// message counter.
func (s *ChatService) PostMessage(ctx context.Context, sessionID, content, deviceType, username, replyToID string) (domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	_, span := tr.Start(ctx, "PostMessage",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("device.type", deviceType),
		),
	)
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(content) > s.MaxMessageRunes {
		return domain.Message{}, ErrMessageTooLong
	}

	ledger, _ := s.Sessions.LedgerFor(sessionID)
	msg := ledger.Append(content, deviceType, username, replyToID)

	if username != "" {
		// Both are no-ops for unregistered/anonymous posters.
		s.Users.TouchActivity(username)
		s.Users.IncrementMessageCount(username)
	}
	messagesPosted.Inc()
	return msg, nil
}

// ListMessages returns the session's non-deleted messages in insertion
// order. A never-touched session yields an empty slice, not an error.
func (s *ChatService) ListMessages(ctx context.Context, sessionID string) []domain.Message {
	tr := otel.Tracer("services/ChatService")
	_, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	ledger, _ := s.Sessions.LedgerFor(sessionID)
	return ledger.List()
}

// SessionRevision returns the session ledger's change counter. Pollers use
// it to recognize an unchanged room without comparing message lists.
func (s *ChatService) SessionRevision(ctx context.Context, sessionID string) uint64 {
	ledger, _ := s.Sessions.LedgerFor(sessionID)
	return ledger.Revision()
}

// SearchMessages returns the session's non-deleted messages whose content
// or author matches query case-insensitively, in insertion order. A blank
// query yields no results.
func (s *ChatService) SearchMessages(ctx context.Context, sessionID, query string) []domain.Message {
	tr := otel.Tracer("services/ChatService")
	_, span := tr.Start(ctx, "SearchMessages",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	ledger, _ := s.Sessions.LedgerFor(sessionID)
	return ledger.Search(query)
}

// GetMessage returns a single message by id, soft-deleted ones included.
func (s *ChatService) GetMessage(ctx context.Context, sessionID, messageID string) (domain.Message, error) {
	ledger, _ := s.Sessions.LedgerFor(sessionID)
	m, ok := ledger.FindByID(messageID)
	if !ok {
		return domain.Message{}, ErrMessageNotFound
	}
	return m, nil
}

// EditMessage rewrites the requester's own message. Editing a deleted
// message succeeds but leaves it hidden from listings.
func (s *ChatService) EditMessage(ctx context.Context, sessionID, messageID, content, requester string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(content) > s.MaxMessageRunes {
		return ErrMessageTooLong
	}
	ledger, _ := s.Sessions.LedgerFor(sessionID)
	return s.mapLedgerErr(ledger.Edit(messageID, content, requester))
}

// DeleteMessage soft-deletes the requester's own message; idempotent.
func (s *ChatService) DeleteMessage(ctx context.Context, sessionID, messageID, requester string) error {
	ledger, _ := s.Sessions.LedgerFor(sessionID)
	return s.mapLedgerErr(ledger.Delete(messageID, requester))
}

// React adjusts the anonymous reaction count for an emoji token on a
// message: add increments, remove decrements with a floor at zero. Any
// caller may react to any message.
func (s *ChatService) React(ctx context.Context, sessionID, messageID, emoji string, add bool) error {
	ledger, _ := s.Sessions.LedgerFor(sessionID)
	var err error
	if add {
		err = ledger.AddReaction(messageID, emoji)
	} else {
		err = ledger.RemoveReaction(messageID, emoji)
	}
	return s.mapLedgerErr(err)
}

// SetTyping records or clears a typing signal for username in the session.
func (s *ChatService) SetTyping(ctx context.Context, sessionID, username string, active bool) {
	s.Presence.SetTyping(sessionID, username, active)
}

// TypingUsers returns the usernames currently typing in the session, after
// expired signals have been purged.
func (s *ChatService) TypingUsers(ctx context.Context, sessionID string) []string {
	return s.Presence.Current(sessionID)
}

// mapLedgerErr translates store sentinels into service-level errors.
func (s *ChatService) mapLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrMessageNotFound):
		return ErrMessageNotFound
	case errors.Is(err, store.ErrNotAuthor):
		return ErrUnauthorized
	default:
		return err
	}
}
