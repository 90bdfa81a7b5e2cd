// Message HTTP handlers.
//
// This file exposes REST endpoints for sessions and their messages:
//   - POST   /sessions                             (create/ensure a room)
//   - GET    /sessions/{id}/messages               (list, poll-friendly)
//   - POST   /sessions/{id}/messages               (append)
//   - GET    /sessions/{id}/messages/search        (substring search)
//   - PUT    /sessions/{id}/messages/{mid}         (edit own message)
//   - DELETE /sessions/{id}/messages/{mid}         (soft-delete own message)
//   - POST   /sessions/{id}/messages/{mid}/reactions
//
// Handlers are transport-thin:
//   - validate & normalize inputs (line endings, length constraints)
//   - delegate to the chat service
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous request with
// the same (user, session, key) was already served, the post is skipped and
// the handler responds with `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/alphatexting/go-backend/internal/domain"
	"github.com/alphatexting/go-backend/internal/http/middleware"
	"github.com/alphatexting/go-backend/internal/services"
	"github.com/alphatexting/go-backend/internal/utils"
)

//
// DTOs
//

// CreateSessionRequest is the JSON payload for creating (or re-joining) a room.
type CreateSessionRequest struct {
	// SessionID is the client-chosen room identifier; required.
	SessionID string `json:"session_id" binding:"required,min=1"`
}

// CreateSessionResponse echoes the room id and its join link.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	JoinURL   string `json:"join_url"`
}

// PostMessageRequest is the JSON payload for appending a message.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer, which enforces the rune
// cap a second time.
type PostMessageRequest struct {
	// Content is the message body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1"`
	// DeviceType is a free-form client descriptor (e.g. "mobile", "desktop").
	DeviceType string `json:"device_type"`
	// ReplyToID optionally references an earlier message in the same session.
	ReplyToID string `json:"reply_to_id"`
}

// PostMessageResponse is the JSON envelope for a newly appended message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains the visible messages of a session.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Count    int              `json:"count"`
}

// EditMessageRequest is the JSON payload for rewriting a message.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

// ReactionRequest is the JSON payload for adjusting a reaction counter.
type ReactionRequest struct {
	// Emoji is the reaction token; required.
	Emoji string `json:"emoji" binding:"required,min=1"`
	// Action is "add" or "remove"; empty defaults to "add".
	Action string `json:"action"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// maxContentRunes inspects the concrete ChatService for the configured
// content cap so the edge can fail fast. Falls back conservatively.
func maxContentRunes(svc ChatService) int {
	const fallback = 4000
	if cs, ok := svc.(*services.ChatService); ok && cs.MaxMessageRunes > 0 {
		return cs.MaxMessageRunes
	}
	return fallback
}

// clampLimit parses the optional ?limit= query parameter and bounds it.
// Zero means no limit (return everything).
func clampLimit(c *gin.Context) int {
	const maxLimit = 500
	n := utils.AtoiDefault(c.Query("limit"), 0)
	if n < 0 {
		n = 0
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n
}

//
// Handlers
//

// CreateSession ensures a room exists for the supplied id and returns its
// join link. Re-creating an existing room is a successful no-op.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
		return
	}

	if err := h.chatSvc.CreateRoom(c.Request.Context(), userID(c), req.SessionID); err != nil {
		if err == services.ErrEmptySessionID {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	sid := strings.TrimSpace(req.SessionID)
	ok(c, http.StatusCreated, CreateSessionResponse{
		SessionID: sid,
		JoinURL:   h.baseURL + "/join/" + sid + ".png",
	})
}

// PostMessage appends a message to the session. An unknown session is created
// on first touch; an empty X-User-ID posts anonymously.
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(req.Content)
	maxRunes := maxContentRunes(h.chatSvc)
	if utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path): same key already served means the message is
	// in the ledger; do not append it again.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && middleware.IsReplay(c) {
		c.Header("Idempotency-Replayed", "true")
		noContent(c)
		return
	}

	m, err := h.chatSvc.PostMessage(ctx, sessionID, content, req.DeviceType, currentUser, req.ReplyToID)
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Idempotency (store path): remember the served key.
	if idemKey != "" && h.replay != nil {
		h.replay.Remember(middleware.ReplayKey(currentUser, sessionID, idemKey))
	}

	ok(c, http.StatusCreated, PostMessageResponse{Message: &m})
}

// ListMessages returns the session's visible messages in insertion order.
// Pollers hit this every couple of seconds, so an ETag derived from the
// session's revision lets unchanged rooms answer 304 without a body.
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	// Revision is read before the listing: a mutation racing in between
	// leaves the client with a stale ETag, so the next conditional GET is a
	// full 200 rather than a wrong 304.
	rev := h.chatSvc.SessionRevision(ctx, sessionID)
	items := h.chatSvc.ListMessages(ctx, sessionID)

	// Weak ETag over the ledger revision, which advances on every append,
	// edit, delete, and reaction change anywhere in the session.
	etag := fmt.Sprintf(`W/"messages:%d"`, rev)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	if limit := clampLimit(c); limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Count: len(items)})
}

// SearchMessages returns the session's visible messages whose content or
// author matches ?q= case-insensitively. A blank query yields no matches.
func (h *Handlers) SearchMessages(c *gin.Context) {
	items := h.chatSvc.SearchMessages(c.Request.Context(), c.Param("id"), c.Query("q"))
	if items == nil {
		items = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Count: len(items)})
}

// EditMessage rewrites the requester's own message and returns the result.
func (h *Handlers) EditMessage(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")
	messageID := c.Param("mid")

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	if err := h.chatSvc.EditMessage(ctx, sessionID, messageID, content, userID(c)); err != nil {
		h.failMessageErr(c, err)
		return
	}

	m, err := h.chatSvc.GetMessage(ctx, sessionID, messageID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, PostMessageResponse{Message: &m})
}

// DeleteMessage soft-deletes the requester's own message. Deleting an
// already-deleted message succeeds.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	if err := h.chatSvc.DeleteMessage(c.Request.Context(), c.Param("id"), c.Param("mid"), userID(c)); err != nil {
		h.failMessageErr(c, err)
		return
	}
	noContent(c)
}

// React adjusts a reaction counter on a message and returns the updated
// message. Reactions are anonymous tallies; any requester may adjust them.
func (h *Handlers) React(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")
	messageID := c.Param("mid")

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "emoji required")
		return
	}

	var add bool
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", "add":
		add = true
	case "remove":
		add = false
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `action must be "add" or "remove"`)
		return
	}

	if err := h.chatSvc.React(ctx, sessionID, messageID, req.Emoji, add); err != nil {
		h.failMessageErr(c, err)
		return
	}

	m, err := h.chatSvc.GetMessage(ctx, sessionID, messageID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, PostMessageResponse{Message: &m})
}

// failMessageErr maps message-path service errors onto HTTP responses.
func (h *Handlers) failMessageErr(c *gin.Context, err error) {
	switch err {
	case services.ErrMessageNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	case services.ErrUnauthorized:
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the message author")
	case services.ErrEmptyMessage:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
	case services.ErrMessageTooLong:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content too long")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
