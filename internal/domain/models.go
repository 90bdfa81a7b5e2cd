// Package domain defines the in-memory data records for users, sessions,
// and messages. The backend keeps all chat state in process memory (the
// deployment model is a single node polled by clients), so these types are
// plain values with JSON tags and no persistence mapping.
package domain

import "time"

// DeletedPlaceholder replaces the content of a soft-deleted message. The
// record itself is retained so ids and ordering stay stable for pollers.
const DeletedPlaceholder = "[Message deleted]"

// AnonymousUsername is attributed to messages posted without a username.
const AnonymousUsername = "Anonymous"

// User is a registered account, keyed by its case-sensitive username.
//
// Fields:
//   - Username: immutable unique key.
//   - DisplayName: presentation name; defaults to the username.
//   - Email: optional contact address.
//   - CreatedAt / LastActiveAt: registration time and last observed activity
//     (login, profile/settings edit, or message post).
//   - TotalMessages / TotalSessions: lifetime counters. TotalSessions counts
//     rooms this user created, not rooms joined.
type User struct {
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
	TotalMessages int64     `json:"total_messages"`
	TotalSessions int64     `json:"total_sessions"`
}

// NewUser builds a User with defaults applied. An empty displayName falls
// back to the username.
func NewUser(username, displayName string, now time.Time) *User {
	if displayName == "" {
		displayName = username
	}
	return &User{
		Username:     username,
		DisplayName:  displayName,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// UserProfile holds the free-text extended profile, 1:1 with a User.
// All fields default to empty and are only ever overwritten, never derived.
type UserProfile struct {
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profile_picture"`
	Location       string `json:"location"`
	Website        string `json:"website"`
	PhoneNumber    string `json:"phone_number"`
}

// NewUserProfile returns an empty profile for username.
func NewUserProfile(username string) *UserProfile {
	return &UserProfile{Username: username}
}

// Theme and language values accepted by UserSettings.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"

	LanguageEnglish = "english"
	LanguageSpanish = "spanish"
	LanguageFrench  = "french"
)

// Bounds for the numeric settings fields. Updates outside these ranges are
// rejected and the previous value is retained (no clamping).
const (
	SessionTimeoutMin = 5
	SessionTimeoutMax = 300

	RefreshIntervalMin = 500
	RefreshIntervalMax = 5000

	MaxMessagesDisplayMin = 20
	MaxMessagesDisplayMax = 500
)

// UserSettings holds per-user preferences, 1:1 with a User. Instances are
// materialized lazily with defaults on first access.
type UserSettings struct {
	Username             string `json:"username"`
	Notifications        bool   `json:"notifications"`
	SoundEnabled         bool   `json:"sound_enabled"`
	Theme                string `json:"theme"`
	Language             string `json:"language"`
	CompactMode          bool   `json:"compact_mode"`
	ReadReceipts         bool   `json:"read_receipts"`
	SessionTimeoutMins   int    `json:"session_timeout_minutes"`
	AutoRefresh          bool   `json:"auto_refresh"`
	RefreshIntervalMs    int    `json:"refresh_interval_ms"`
	ShowTimestamps       bool   `json:"show_timestamps"`
	ShowTypingIndicators bool   `json:"show_typing_indicators"`
	MaxMessagesDisplay   int    `json:"max_messages_display"`
}

// NewUserSettings returns the default settings for username.
func NewUserSettings(username string) *UserSettings {
	return &UserSettings{
		Username:             username,
		Notifications:        true,
		SoundEnabled:         true,
		Theme:                ThemeAuto,
		Language:             LanguageEnglish,
		CompactMode:          false,
		ReadReceipts:         true,
		SessionTimeoutMins:   60,
		AutoRefresh:          true,
		RefreshIntervalMs:    1000,
		ShowTimestamps:       true,
		ShowTypingIndicators: true,
		MaxMessagesDisplay:   100,
	}
}

// Message is a single chat message within one session's ledger.
//
// Fields:
//   - ID: globally unique UUID assigned at creation.
//   - Content: message text; replaced by DeletedPlaceholder on soft delete.
//   - Username: author; AnonymousUsername when the poster gave none.
//   - DeviceType: free-form origin tag supplied by the client ("phone",
//     "computer", ...). Not validated.
//   - Edited / EditedAt: set when the author rewrites the content.
//   - Deleted: soft-delete flag; deleted messages stay in the ledger but are
//     excluded from listings and search.
//   - Reactions: emoji token → aggregate count. Counts are anonymous; no
//     reactor identity is recorded.
//   - ReplyToID / ReplyToContent / ReplyToUsername: snapshot of the message
//     being replied to, captured at reply time. Later edits or deletes of
//     the original do not alter the snapshot.
type Message struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Username   string     `json:"username"`
	DeviceType string     `json:"device_type"`
	CreatedAt  time.Time  `json:"created_at"`
	Edited     bool       `json:"edited"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
	Deleted    bool       `json:"deleted"`

	Reactions map[string]int `json:"reactions"`

	ReplyToID       string `json:"reply_to_id,omitempty"`
	ReplyToContent  string `json:"reply_to_content,omitempty"`
	ReplyToUsername string `json:"reply_to_username,omitempty"`
}

// Clone returns a deep copy of the message (reaction map included) so
// callers can hand snapshots across goroutine boundaries safely.
func (m *Message) Clone() Message {
	cp := *m
	if m.Reactions != nil {
		cp.Reactions = make(map[string]int, len(m.Reactions))
		for k, v := range m.Reactions {
			cp.Reactions[k] = v
		}
	}
	return cp
}

// IsReply reports whether the message carries a reply snapshot.
func (m *Message) IsReply() bool { return m.ReplyToID != "" }
