package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/alphatexting/go-backend/internal/domain"
)

// Ledger is the ordered message history of one session. Appends, edits,
// deletes, and reaction changes are serialized by the ledger's own lock, so
// a ledger reached through the session registry is safe to mutate from any
// number of goroutines: concurrent appends are never lost, and their order
// matches the order in which they were acknowledged to callers.
//
// Messages are never physically removed. A soft delete keeps the record
// (id and position intact) and swaps the content for a placeholder.
type Ledger struct {
	mu       sync.RWMutex
	messages []*domain.Message
	byID     map[string]*domain.Message

	// rev advances on every state change (append, edit, delete, reaction)
	// so pollers can cheaply detect that anything in the session moved.
	rev uint64

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byID: make(map[string]*domain.Message),
		now:  time.Now,
	}
}

// Append creates a message at the tail of the ledger and returns a snapshot
// of it. An empty username is recorded as the anonymous author. When
// replyToID resolves to a message in this ledger (deleted or not), the new
// message captures a snapshot of that message's current content and author;
// an unresolvable replyToID silently yields a plain message.
func (l *Ledger) Append(content, deviceType, username, replyToID string) domain.Message {
	if username == "" {
		username = domain.AnonymousUsername
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m := &domain.Message{
		ID:         uuid.NewString(),
		Content:    content,
		Username:   username,
		DeviceType: deviceType,
		CreatedAt:  l.now(),
		Reactions:  make(map[string]int),
	}
	if replyToID != "" {
		if target, ok := l.byID[replyToID]; ok {
			m.ReplyToID = target.ID
			m.ReplyToContent = target.Content
			m.ReplyToUsername = target.Username
		}
	}
	l.messages = append(l.messages, m)
	l.byID[m.ID] = m
	l.rev++
	return m.Clone()
}

// List returns all non-deleted messages in insertion order. The result is a
// snapshot: concurrent appends may or may not be visible, and mutating the
// returned values does not touch ledger state.
func (l *Ledger) List() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Message, 0, len(l.messages))
	for _, m := range l.messages {
		if m.Deleted {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

// FindByID returns a snapshot of the message, deleted or not.
func (l *Ledger) FindByID(id string) (domain.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byID[id]
	if !ok {
		return domain.Message{}, false
	}
	return m.Clone(), true
}

// Edit replaces the content of the requester's own message and marks it
// edited. Editing a soft-deleted message succeeds but un-hides nothing: the
// deleted flag stays set and the message remains excluded from List.
func (l *Ledger) Edit(id, newContent, requester string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[id]
	if !ok {
		return ErrMessageNotFound
	}
	if m.Username != requester {
		return ErrNotAuthor
	}
	m.Content = newContent
	m.Edited = true
	at := l.now()
	m.EditedAt = &at
	l.rev++
	return nil
}

// Delete soft-deletes the requester's own message: the deleted flag is set
// and the content becomes the fixed placeholder. Deleting an already
// deleted message succeeds silently.
func (l *Ledger) Delete(id, requester string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[id]
	if !ok {
		return ErrMessageNotFound
	}
	if m.Username != requester {
		return ErrNotAuthor
	}
	if m.Deleted {
		return nil
	}
	m.Deleted = true
	m.Content = domain.DeletedPlaceholder
	l.rev++
	return nil
}

// AddReaction increments the count for an emoji token on a message. Counts
// are anonymous aggregates; any caller may react to any message.
func (l *Ledger) AddReaction(id, emoji string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.Reactions[emoji]++
	l.rev++
	return nil
}

// RemoveReaction decrements the count for an emoji token, removing the key
// once the count reaches zero. Counts never go negative; removing an absent
// emoji is a no-op.
func (l *Ledger) RemoveReaction(id, emoji string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[id]
	if !ok {
		return ErrMessageNotFound
	}
	if n, present := m.Reactions[emoji]; present {
		if n <= 1 {
			delete(m.Reactions, emoji)
		} else {
			m.Reactions[emoji] = n - 1
		}
		l.rev++
	}
	return nil
}

// Search returns the non-deleted messages whose content or author matches
// query as a case-insensitive substring, preserving insertion order. An
// empty or whitespace-only query yields no results rather than everything.
func (l *Ledger) Search(query string) []domain.Message {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	// Unicode case folding rather than ASCII lowering; a fresh caser per
	// call because cases.Caser is not safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(query)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Message
	for _, m := range l.messages {
		if m.Deleted {
			continue
		}
		if strings.Contains(fold.String(m.Content), needle) ||
			strings.Contains(fold.String(m.Username), needle) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Len returns the total number of records, soft-deleted ones included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Revision returns the ledger's change counter. Two equal revisions bracket
// a window with no appends, edits, deletes, or reaction changes; read-only
// operations never advance it.
func (l *Ledger) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rev
}
