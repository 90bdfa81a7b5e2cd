package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphatexting/go-backend/internal/domain"
)

// userEntry bundles the three records owned by one registration. The message
// and session counters live outside the map lock so concurrent posters only
// pay for an atomic add, not for store-wide mutual exclusion.
type userEntry struct {
	user     *domain.User
	profile  *domain.UserProfile
	settings *domain.UserSettings

	totalMessages atomic.Int64
	totalSessions atomic.Int64
}

// UserStore is the identity store: registered users plus their profile and
// settings records. It is safe for concurrent use.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*userEntry

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewUserStore returns an empty identity store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*userEntry),
		now:   time.Now,
	}
}

// Register creates a User together with its default profile and settings.
// The three records come into existence atomically from the caller's point
// of view: either the username was free and all exist afterwards, or
// ErrUserExists is returned and nothing changed.
func (s *UserStore) Register(username, displayName string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[username]; taken {
		return nil, ErrUserExists
	}
	e := &userEntry{
		user:     domain.NewUser(username, displayName, s.now()),
		profile:  domain.NewUserProfile(username),
		settings: domain.NewUserSettings(username),
	}
	s.users[username] = e
	return e.snapshot(), nil
}

// Get returns a snapshot of the user, or false when the username is unknown.
// Absence is not an error here; callers decide whether it is fatal.
func (s *UserStore) Get(username string) (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.users[username]
	if !ok {
		return nil, false
	}
	return e.snapshot(), true
}

// TouchActivity updates the user's LastActiveAt. Unknown usernames are a
// no-op: anonymous posters simply leave no activity trail.
func (s *UserStore) TouchActivity(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.users[username]; ok {
		e.user.LastActiveAt = s.now()
	}
}

// IncrementMessageCount adds one to the user's lifetime message counter.
// No-op for unknown usernames; safe under unbounded concurrent callers.
func (s *UserStore) IncrementMessageCount(username string) {
	if e := s.entry(username); e != nil {
		e.totalMessages.Add(1)
	}
}

// IncrementSessionCount adds one to the user's created-rooms counter.
// No-op for unknown usernames; safe under unbounded concurrent callers.
func (s *UserStore) IncrementSessionCount(username string) {
	if e := s.entry(username); e != nil {
		e.totalSessions.Add(1)
	}
}

// Profile returns the user's profile, materializing it lazily should it be
// missing. ErrUserNotFound when the username is not registered.
func (s *UserStore) Profile(username string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if e.profile == nil {
		e.profile = domain.NewUserProfile(username)
	}
	p := *e.profile
	return &p, nil
}

// Settings returns the user's settings, materializing defaults lazily.
// ErrUserNotFound when the username is not registered.
func (s *UserStore) Settings(username string) (*domain.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if e.settings == nil {
		e.settings = domain.NewUserSettings(username)
	}
	st := *e.settings
	return &st, nil
}

// ProfileUpdate is a partial update: only non-nil fields are applied.
// DisplayName and Email live on the User record, the rest on the profile.
type ProfileUpdate struct {
	DisplayName    *string
	Email          *string
	Bio            *string
	ProfilePicture *string
	Location       *string
	Website        *string
	PhoneNumber    *string
}

// UpdateProfile applies the provided fields and refreshes LastActiveAt.
// Fields left nil keep their current values.
func (s *UserStore) UpdateProfile(username string, upd ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	if e.profile == nil {
		e.profile = domain.NewUserProfile(username)
	}

	if upd.DisplayName != nil {
		e.user.DisplayName = *upd.DisplayName
	}
	if upd.Email != nil {
		e.user.Email = *upd.Email
	}
	if upd.Bio != nil {
		e.profile.Bio = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		e.profile.ProfilePicture = *upd.ProfilePicture
	}
	if upd.Location != nil {
		e.profile.Location = *upd.Location
	}
	if upd.Website != nil {
		e.profile.Website = *upd.Website
	}
	if upd.PhoneNumber != nil {
		e.profile.PhoneNumber = *upd.PhoneNumber
	}
	e.user.LastActiveAt = s.now()
	return nil
}

// SettingsUpdate is a partial update: only non-nil fields are applied.
type SettingsUpdate struct {
	Notifications        *bool
	SoundEnabled         *bool
	Theme                *string
	Language             *string
	CompactMode          *bool
	ReadReceipts         *bool
	SessionTimeoutMins   *int
	AutoRefresh          *bool
	RefreshIntervalMs    *int
	ShowTimestamps       *bool
	ShowTypingIndicators *bool
	MaxMessagesDisplay   *int
}

// UpdateSettings applies the provided fields. A numeric field outside its
// bounds is rejected individually (previous value retained, field name
// reported in rejected) while every other provided field is still applied.
// ErrUserNotFound when the username is not registered.
func (s *UserStore) UpdateSettings(username string, upd SettingsUpdate) (rejected []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if e.settings == nil {
		e.settings = domain.NewUserSettings(username)
	}
	st := e.settings

	if upd.Notifications != nil {
		st.Notifications = *upd.Notifications
	}
	if upd.SoundEnabled != nil {
		st.SoundEnabled = *upd.SoundEnabled
	}
	if upd.Theme != nil {
		st.Theme = *upd.Theme
	}
	if upd.Language != nil {
		st.Language = *upd.Language
	}
	if upd.CompactMode != nil {
		st.CompactMode = *upd.CompactMode
	}
	if upd.ReadReceipts != nil {
		st.ReadReceipts = *upd.ReadReceipts
	}
	if upd.AutoRefresh != nil {
		st.AutoRefresh = *upd.AutoRefresh
	}
	if upd.ShowTimestamps != nil {
		st.ShowTimestamps = *upd.ShowTimestamps
	}
	if upd.ShowTypingIndicators != nil {
		st.ShowTypingIndicators = *upd.ShowTypingIndicators
	}

	if upd.SessionTimeoutMins != nil {
		if v := *upd.SessionTimeoutMins; v >= domain.SessionTimeoutMin && v <= domain.SessionTimeoutMax {
			st.SessionTimeoutMins = v
		} else {
			rejected = append(rejected, "session_timeout_minutes")
		}
	}
	if upd.RefreshIntervalMs != nil {
		if v := *upd.RefreshIntervalMs; v >= domain.RefreshIntervalMin && v <= domain.RefreshIntervalMax {
			st.RefreshIntervalMs = v
		} else {
			rejected = append(rejected, "refresh_interval_ms")
		}
	}
	if upd.MaxMessagesDisplay != nil {
		if v := *upd.MaxMessagesDisplay; v >= domain.MaxMessagesDisplayMin && v <= domain.MaxMessagesDisplayMax {
			st.MaxMessagesDisplay = v
		} else {
			rejected = append(rejected, "max_messages_display")
		}
	}

	e.user.LastActiveAt = s.now()
	return rejected, nil
}

// Count returns the number of registered users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *UserStore) entry(username string) *userEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[username]
}

// snapshot copies the user record with the live counter values folded in.
// Caller must hold at least a read lock on the store.
func (e *userEntry) snapshot() *domain.User {
	u := *e.user
	u.TotalMessages = e.totalMessages.Load()
	u.TotalSessions = e.totalSessions.Load()
	return &u
}
