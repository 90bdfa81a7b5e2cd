// User HTTP handlers.
//
// This file exposes REST endpoints for identity resources:
//   - POST /users                        (register)
//   - GET  /users/{username}             (lookup)
//   - GET  /users/{username}/stats       (live counters)
//   - PUT  /users/{username}/profile     (partial profile update)
//   - GET  /users/{username}/settings    (read settings)
//   - PUT  /users/{username}/settings    (partial settings update)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. There is no authentication layer;
// identity is whatever the client declares via X-User-ID (or the username
// query parameter for clients that cannot set headers).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alphatexting/go-backend/internal/domain"
	"github.com/alphatexting/go-backend/internal/services"
	"github.com/alphatexting/go-backend/internal/store"
)

//
// Service contracts (context-aware)
//

// UserService defines identity operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use.
type UserService interface {
	// Register creates a user with default profile and settings.
	Register(ctx context.Context, username, displayName string) (*domain.User, error)
	// Login refreshes activity and returns the user record.
	Login(ctx context.Context, username string) (*domain.User, error)
	// Lookup returns the user record without touching activity.
	Lookup(ctx context.Context, username string) (*domain.User, error)
	// Profile returns the extended profile, creating defaults lazily.
	Profile(ctx context.Context, username string) (*domain.UserProfile, error)
	// Settings returns the settings record, creating defaults lazily.
	Settings(ctx context.Context, username string) (*domain.UserSettings, error)
	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, username string, upd store.ProfileUpdate) error
	// UpdateSettings applies a partial settings update.
	UpdateSettings(ctx context.Context, username string, upd store.SettingsUpdate) error
	// Stats returns the user record with its live counters.
	Stats(ctx context.Context, username string) (*domain.User, error)
}

// ChatService defines room-scoped operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use.
type ChatService interface {
	CreateRoom(ctx context.Context, username, sessionID string) error
	PostMessage(ctx context.Context, sessionID, content, deviceType, username, replyToID string) (domain.Message, error)
	ListMessages(ctx context.Context, sessionID string) []domain.Message
	SessionRevision(ctx context.Context, sessionID string) uint64
	SearchMessages(ctx context.Context, sessionID, query string) []domain.Message
	GetMessage(ctx context.Context, sessionID, messageID string) (domain.Message, error)
	EditMessage(ctx context.Context, sessionID, messageID, content, requester string) error
	DeleteMessage(ctx context.Context, sessionID, messageID, requester string) error
	React(ctx context.Context, sessionID, messageID, emoji string, add bool) error
	SetTyping(ctx context.Context, sessionID, username string, active bool)
	TypingUsers(ctx context.Context, sessionID string) []string
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for users, sessions, messages, and presence.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	userSvc UserService
	chatSvc ChatService

	// replay remembers idempotency keys of served unsafe requests.
	replay *store.ReplayCache

	// baseURL is the public origin embedded in join links.
	baseURL string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(userSvc UserService, chatSvc ChatService, replay *store.ReplayCache, baseURL string) *Handlers {
	return &Handlers{userSvc: userSvc, chatSvc: chatSvc, replay: replay, baseURL: strings.TrimRight(baseURL, "/")}
}

// userID extracts the declared requester identity: the X-User-ID header first,
// then the username query parameter. Empty means anonymous. It never touches
// c.Request when it is nil.
func userID(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		return h
	}
	return strings.TrimSpace(c.Query("username"))
}

//
// DTOs
//

// RegisterUserRequest is the JSON payload for registering a user.
type RegisterUserRequest struct {
	// Username is the unique handle; required.
	Username string `json:"username" binding:"required,min=1"`
	// DisplayName optionally overrides the shown name; defaults to Username.
	DisplayName string `json:"display_name"`
}

// UserResponse is the JSON envelope for a user record.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// UserStatsResponse carries the live per-user counters.
type UserStatsResponse struct {
	Username      string `json:"username"`
	TotalMessages int64  `json:"total_messages"`
	TotalSessions int64  `json:"total_sessions"`
}

// UpdateProfileRequest is the JSON payload for a partial profile update.
// Absent fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name"`
	Email          *string `json:"email"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
	Location       *string `json:"location"`
	Website        *string `json:"website"`
	PhoneNumber    *string `json:"phone_number"`
}

// UpdateSettingsRequest is the JSON payload for a partial settings update.
// Absent fields are left unchanged; numeric fields outside their allowed
// ranges are rejected individually while the rest of the update applies.
type UpdateSettingsRequest struct {
	Notifications        *bool   `json:"notifications"`
	SoundEnabled         *bool   `json:"sound_enabled"`
	Theme                *string `json:"theme"`
	Language             *string `json:"language"`
	CompactMode          *bool   `json:"compact_mode"`
	ReadReceipts         *bool   `json:"read_receipts"`
	SessionTimeoutMins   *int    `json:"session_timeout_minutes"`
	AutoRefresh          *bool   `json:"auto_refresh"`
	RefreshIntervalMs    *int    `json:"refresh_interval_ms"`
	ShowTimestamps       *bool   `json:"show_timestamps"`
	ShowTypingIndicators *bool   `json:"show_typing_indicators"`
	MaxMessagesDisplay   *int    `json:"max_messages_display"`
}

//
// Handlers
//

// RegisterUser creates a new user along with default profile and settings.
// Responds 201 with the record, or 409 when the username is taken.
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username required")
		return
	}

	u, err := h.userSvc.Register(c.Request.Context(), req.Username, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyUsername):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username required")
		case errors.Is(err, services.ErrUserExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "username already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, UserResponse{User: u})
}

// GetUser returns the user record for the path username. When the requester
// is the user themselves, the lookup doubles as a login and refreshes the
// activity timestamp.
func (h *Handlers) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.Param("username")

	var (
		u   *domain.User
		err error
	)
	if userID(c) == username {
		u, err = h.userSvc.Login(ctx, username)
	} else {
		u, err = h.userSvc.Lookup(ctx, username)
	}
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, UserResponse{User: u})
}

// GetUserStats returns the live counters for the path username.
func (h *Handlers) GetUserStats(c *gin.Context) {
	u, err := h.userSvc.Stats(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, UserStatsResponse{
		Username:      u.Username,
		TotalMessages: u.TotalMessages,
		TotalSessions: u.TotalSessions,
	})
}

// GetProfile returns the extended profile for the path username, materializing
// defaults on first access.
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.userSvc.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProfile applies a partial profile update and returns the result.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.Param("username")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid profile payload")
		return
	}

	upd := store.ProfileUpdate{
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
		Location:       req.Location,
		Website:        req.Website,
		PhoneNumber:    req.PhoneNumber,
	}
	if err := h.userSvc.UpdateProfile(ctx, username, upd); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	p, err := h.userSvc.Profile(ctx, username)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// GetSettings returns the settings record for the path username.
func (h *Handlers) GetSettings(c *gin.Context) {
	s, err := h.userSvc.Settings(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, s)
}

// UpdateSettings applies a partial settings update and returns the resulting
// record. Out-of-range numeric fields yield 400 with the offending field names
// while in-range fields from the same request are still applied.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.Param("username")

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid settings payload")
		return
	}

	upd := store.SettingsUpdate{
		Notifications:        req.Notifications,
		SoundEnabled:         req.SoundEnabled,
		Theme:                req.Theme,
		Language:             req.Language,
		CompactMode:          req.CompactMode,
		ReadReceipts:         req.ReadReceipts,
		SessionTimeoutMins:   req.SessionTimeoutMins,
		AutoRefresh:          req.AutoRefresh,
		RefreshIntervalMs:    req.RefreshIntervalMs,
		ShowTimestamps:       req.ShowTimestamps,
		ShowTypingIndicators: req.ShowTypingIndicators,
		MaxMessagesDisplay:   req.MaxMessagesDisplay,
	}
	err := h.userSvc.UpdateSettings(ctx, username, upd)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		case errors.Is(err, services.ErrInvalidSetting):
			fail(c, http.StatusBadRequest, ErrCodeInvalidSetting, err.Error())
			return
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
	}

	s, err := h.userSvc.Settings(ctx, username)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, s)
}
