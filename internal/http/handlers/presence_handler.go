// Presence HTTP handlers.
//
// This file exposes the typing-indicator endpoints:
//   - POST /sessions/{id}/typing   (record or clear a typing signal)
//   - GET  /sessions/{id}/typing   (who is typing right now)
//
// Typing signals decay on their own after the configured TTL, so clients only
// renew while keystrokes continue; no "stopped typing" message is required,
// though sending one clears the signal immediately.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TypingRequest is the JSON payload for a typing signal.
type TypingRequest struct {
	// Typing is true while the user composes, false to clear early.
	Typing bool `json:"typing"`
	// Username optionally overrides the declared identity for the signal.
	Username string `json:"username"`
}

// TypingResponse lists the users currently typing in a session.
type TypingResponse struct {
	TypingUsers []string `json:"typing_users"`
	Count       int      `json:"count"`
}

// SetTyping records or clears a typing signal for the requester.
func (h *Handlers) SetTyping(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid typing payload")
		return
	}

	username := req.Username
	if username == "" {
		username = userID(c)
	}
	if username == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username required")
		return
	}

	h.chatSvc.SetTyping(c.Request.Context(), c.Param("id"), username, req.Typing)
	noContent(c)
}

// GetTyping returns the usernames with a live typing signal in the session.
func (h *Handlers) GetTyping(c *gin.Context) {
	users := h.chatSvc.TypingUsers(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, TypingResponse{TypingUsers: users, Count: len(users)})
}
