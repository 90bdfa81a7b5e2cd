package domain

import (
	"testing"
	"time"
)

func TestNewUser_DisplayNameDefault(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	u := NewUser("alice", "", now)
	if u.DisplayName != "alice" {
		t.Fatalf("DisplayName = %q, want username fallback", u.DisplayName)
	}
	u = NewUser("alice", "Alice A.", now)
	if u.DisplayName != "Alice A." {
		t.Fatalf("DisplayName = %q", u.DisplayName)
	}
	if !u.CreatedAt.Equal(now) || !u.LastActiveAt.Equal(now) {
		t.Fatalf("timestamps: %+v", u)
	}
}

func TestNewUserSettings_Defaults(t *testing.T) {
	s := NewUserSettings("bob")
	if s.Theme != ThemeAuto || s.Language != LanguageEnglish {
		t.Fatalf("defaults: %+v", s)
	}
	if s.SessionTimeoutMins < SessionTimeoutMin || s.SessionTimeoutMins > SessionTimeoutMax {
		t.Fatalf("default timeout %d outside its own bounds", s.SessionTimeoutMins)
	}
	if s.RefreshIntervalMs < RefreshIntervalMin || s.RefreshIntervalMs > RefreshIntervalMax {
		t.Fatalf("default refresh %d outside its own bounds", s.RefreshIntervalMs)
	}
	if s.MaxMessagesDisplay < MaxMessagesDisplayMin || s.MaxMessagesDisplay > MaxMessagesDisplayMax {
		t.Fatalf("default display cap %d outside its own bounds", s.MaxMessagesDisplay)
	}
}

func TestMessage_CloneIsDeep(t *testing.T) {
	at := time.Now()
	m := Message{
		ID:        "id-1",
		Content:   "hi",
		Reactions: map[string]int{"👍": 1},
		EditedAt:  &at,
	}

	cp := m.Clone()
	cp.Reactions["👍"] = 99
	if m.Reactions["👍"] != 1 {
		t.Fatalf("clone shares reaction map: %v", m.Reactions)
	}
}

func TestMessage_IsReply(t *testing.T) {
	m := Message{}
	if m.IsReply() {
		t.Fatal("plain message reported as reply")
	}
	m.ReplyToID = "other"
	if !m.IsReply() {
		t.Fatal("reply not detected")
	}
}
