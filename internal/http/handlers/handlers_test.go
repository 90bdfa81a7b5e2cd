package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alphatexting/go-backend/internal/services"
	"github.com/alphatexting/go-backend/internal/store"
)

// newTestRouter wires real services over fresh in-memory state, with only the
// handler routes registered. Middleware behavior is covered in its own
// package; here the focus is request/response semantics.
func newTestRouter(t *testing.T) (*gin.Engine, *store.UserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := store.NewUserStore()
	sessions := store.NewSessionRegistry()
	presence := store.NewPresenceTracker(time.Second)
	replay := store.NewReplayCache(time.Minute)

	userSvc := services.NewUserService(users)
	chatSvc := services.NewChatService(users, sessions, presence)
	h := New(userSvc, chatSvc, replay, "http://test.local")

	r := gin.New()
	r.POST("/users", h.RegisterUser)
	r.GET("/users/:username", h.GetUser)
	r.GET("/users/:username/stats", h.GetUserStats)
	r.GET("/users/:username/profile", h.GetProfile)
	r.PUT("/users/:username/profile", h.UpdateProfile)
	r.GET("/users/:username/settings", h.GetSettings)
	r.PUT("/users/:username/settings", h.UpdateSettings)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id/messages", h.ListMessages)
	r.POST("/sessions/:id/messages", h.PostMessage)
	r.GET("/sessions/:id/messages/search", h.SearchMessages)
	r.PUT("/sessions/:id/messages/:mid", h.EditMessage)
	r.DELETE("/sessions/:id/messages/:mid", h.DeleteMessage)
	r.POST("/sessions/:id/messages/:mid/reactions", h.React)
	r.POST("/sessions/:id/typing", h.SetTyping)
	r.GET("/sessions/:id/typing", h.GetTyping)
	r.GET("/join/:id", h.JoinImage)
	return r, users
}

func doJSON(t *testing.T, r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestRegisterUser(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	resp := decode[UserResponse](t, w)
	if resp.User == nil || resp.User.Username != "alice" {
		t.Fatalf("unexpected response: %s", w.Body)
	}

	// Duplicate username conflicts.
	w = doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != ErrCodeConflict {
		t.Fatalf("error code = %q", er.Code)
	}

	// Missing username fails binding.
	w = doJSON(t, r, http.MethodPost, "/users", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty status = %d", w.Code)
	}
}

func TestGetUser(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})

	if w := doJSON(t, r, http.MethodGet, "/users/alice", "bob", nil); w.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", w.Code)
	}
	// Self-lookup acts as login and must also succeed.
	if w := doJSON(t, r, http.MethodGet, "/users/alice", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/users/ghost", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("ghost status = %d", w.Code)
	}
}

func TestPostAndListMessages(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sessions/room-1/messages", "alice", PostMessageRequest{Content: "hello\r\n\r\n\r\nworld"})
	if w.Code != http.StatusCreated {
		t.Fatalf("post status = %d body=%s", w.Code, w.Body)
	}
	posted := decode[PostMessageResponse](t, w)
	if posted.Message.Content != "hello\n\nworld" {
		t.Fatalf("content not sanitized: %q", posted.Message.Content)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/room-1/messages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[ListMessagesResponse](t, w)
	if list.Count != 1 || len(list.Messages) != 1 {
		t.Fatalf("list = %+v", list)
	}
	if etag := w.Header().Get("ETag"); etag == "" {
		t.Fatal("missing ETag")
	}

	// Unchanged room answers 304 against the ETag.
	req := httptest.NewRequest(http.MethodGet, "/sessions/room-1/messages", nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", w2.Code)
	}

	// Unknown sessions list empty rather than erroring.
	w = doJSON(t, r, http.MethodGet, "/sessions/never-seen/messages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty list status = %d", w.Code)
	}
}

func TestPostMessageValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sessions/room/messages", "", PostMessageRequest{Content: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank content status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/sessions/room/messages", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing content status = %d", w.Code)
	}
}

func TestEditMessageAuthorization(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "mine"})
	m := decode[PostMessageResponse](t, w).Message

	w = doJSON(t, r, http.MethodPut, "/sessions/room/messages/"+m.ID, "mallory", EditMessageRequest{Content: "stolen"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign edit status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/sessions/room/messages/"+m.ID, "alice", EditMessageRequest{Content: "fixed"})
	if w.Code != http.StatusOK {
		t.Fatalf("own edit status = %d body=%s", w.Code, w.Body)
	}
	edited := decode[PostMessageResponse](t, w).Message
	if edited.Content != "fixed" || !edited.Edited {
		t.Fatalf("edit not reflected: %+v", edited)
	}

	w = doJSON(t, r, http.MethodPut, "/sessions/room/messages/nope", "alice", EditMessageRequest{Content: "x"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing edit status = %d", w.Code)
	}
}

func TestDeleteMessage(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "bye"})
	m := decode[PostMessageResponse](t, w).Message

	if w := doJSON(t, r, http.MethodDelete, "/sessions/room/messages/"+m.ID, "bob", nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/sessions/room/messages/"+m.ID, "alice", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/room/messages", "", nil)
	if list := decode[ListMessagesResponse](t, w); list.Count != 0 {
		t.Fatalf("deleted message still listed: %+v", list)
	}
}

func TestReactions(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "react"})
	m := decode[PostMessageResponse](t, w).Message

	w = doJSON(t, r, http.MethodPost, "/sessions/room/messages/"+m.ID+"/reactions", "bob", ReactionRequest{Emoji: "👍"})
	if w.Code != http.StatusOK {
		t.Fatalf("add reaction status = %d body=%s", w.Code, w.Body)
	}
	got := decode[PostMessageResponse](t, w).Message
	if got.Reactions["👍"] != 1 {
		t.Fatalf("reactions = %v", got.Reactions)
	}

	w = doJSON(t, r, http.MethodPost, "/sessions/room/messages/"+m.ID+"/reactions", "bob", ReactionRequest{Emoji: "👍", Action: "remove"})
	if w.Code != http.StatusOK {
		t.Fatalf("remove reaction status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/sessions/room/messages/missing/reactions", "bob", ReactionRequest{Emoji: "👍"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing message status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/sessions/room/messages/"+m.ID+"/reactions", "bob", ReactionRequest{Emoji: "👍", Action: "toggle"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad action status = %d", w.Code)
	}
}

func TestSearchMessages(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "the needle is here"})
	doJSON(t, r, http.MethodPost, "/sessions/room/messages", "bob", PostMessageRequest{Content: "nothing to see"})

	w := doJSON(t, r, http.MethodGet, "/sessions/room/messages/search?q=NEEDLE", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	res := decode[ListMessagesResponse](t, w)
	if res.Count != 1 || res.Messages[0].Username != "alice" {
		t.Fatalf("search result = %+v", res)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/room/messages/search", "", nil)
	if res := decode[ListMessagesResponse](t, w); res.Count != 0 || res.Messages == nil {
		t.Fatalf("blank query result = %+v", res)
	}
}

func TestCreateSessionBillsCreatorOnce(t *testing.T) {
	r, users := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})

	w := doJSON(t, r, http.MethodPost, "/sessions", "alice", CreateSessionRequest{SessionID: "room-9"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body)
	}
	resp := decode[CreateSessionResponse](t, w)
	if resp.JoinURL != "http://test.local/join/room-9.png" {
		t.Fatalf("join url = %q", resp.JoinURL)
	}

	doJSON(t, r, http.MethodPost, "/sessions", "alice", CreateSessionRequest{SessionID: "room-9"})
	u, _ := users.Get("alice")
	if u.TotalSessions != 1 {
		t.Fatalf("TotalSessions = %d, want 1", u.TotalSessions)
	}
}

func TestTypingEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/sessions/room/typing", "alice", TypingRequest{Typing: true}); w.Code != http.StatusNoContent {
		t.Fatalf("set typing status = %d", w.Code)
	}
	// Identity can also come from the body for header-less clients.
	if w := doJSON(t, r, http.MethodPost, "/sessions/room/typing", "", TypingRequest{Typing: true, Username: "bob"}); w.Code != http.StatusNoContent {
		t.Fatalf("body identity status = %d", w.Code)
	}
	// No identity at all is rejected.
	if w := doJSON(t, r, http.MethodPost, "/sessions/room/typing", "", TypingRequest{Typing: true}); w.Code != http.StatusBadRequest {
		t.Fatalf("anonymous typing status = %d", w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/sessions/room/typing", "", nil)
	res := decode[TypingResponse](t, w)
	if res.Count != 2 || len(res.TypingUsers) != 2 {
		t.Fatalf("typing = %+v", res)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})

	w := doJSON(t, r, http.MethodGet, "/users/alice/settings", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings status = %d", w.Code)
	}

	bad := 1 // below the 5-minute floor
	theme := "dark"
	w = doJSON(t, r, http.MethodPut, "/users/alice/settings", "alice", UpdateSettingsRequest{
		Theme:              &theme,
		SessionTimeoutMins: &bad,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range status = %d body=%s", w.Code, w.Body)
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != ErrCodeInvalidSetting {
		t.Fatalf("error code = %q", er.Code)
	}

	// The valid field still landed.
	w = doJSON(t, r, http.MethodGet, "/users/alice/settings", "", nil)
	var settings map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings["theme"] != "dark" {
		t.Fatalf("theme = %v", settings["theme"])
	}

	if w := doJSON(t, r, http.MethodGet, "/users/ghost/settings", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("ghost settings status = %d", w.Code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})

	bio := "chat enthusiast"
	w := doJSON(t, r, http.MethodPut, "/users/alice/profile", "alice", UpdateProfileRequest{Bio: &bio})
	if w.Code != http.StatusOK {
		t.Fatalf("update profile status = %d body=%s", w.Code, w.Body)
	}

	w = doJSON(t, r, http.MethodGet, "/users/alice/profile", "", nil)
	var p map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p["bio"] != "chat enthusiast" {
		t.Fatalf("bio = %v", p["bio"])
	}
}

func TestUserStats(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Username: "alice"})
	doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "one"})
	doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "two"})

	w := doJSON(t, r, http.MethodGet, "/users/alice/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	stats := decode[UserStatsResponse](t, w)
	if stats.TotalMessages != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestJoinImage(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/join/room-1.png", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("join image status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	// PNG magic bytes.
	if b := w.Body.Bytes(); len(b) < 8 || b[0] != 0x89 || string(b[1:4]) != "PNG" {
		t.Fatalf("body is not a PNG (len=%d)", w.Body.Len())
	}

	// Same room renders the same image.
	w2 := doJSON(t, r, http.MethodGet, "/join/room-1.png", "", nil)
	if !bytes.Equal(w.Body.Bytes(), w2.Body.Bytes()) {
		t.Fatal("join image is not deterministic")
	}
}

func TestListMessages_ConditionalGetSeesEarlierMutations(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "first"})
	if w.Code != http.StatusCreated {
		t.Fatalf("post status = %d", w.Code)
	}
	first := decode[PostMessageResponse](t, w)
	if w = doJSON(t, r, http.MethodPost, "/sessions/room/messages", "alice", PostMessageRequest{Content: "second"}); w.Code != http.StatusCreated {
		t.Fatalf("post status = %d", w.Code)
	}

	conditional := func(tag string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/sessions/room/messages", nil)
		req.Header.Set("If-None-Match", tag)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/room/messages", "", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	if got := conditional(etag); got.Code != http.StatusNotModified {
		t.Fatalf("unchanged room = %d, want 304", got.Code)
	}

	// A reaction on the first message, not the tail, must invalidate the tag.
	w = doJSON(t, r, http.MethodPost, "/sessions/room/messages/"+first.Message.ID+"/reactions", "bob", ReactionRequest{Emoji: "👍"})
	if w.Code != http.StatusOK {
		t.Fatalf("react status = %d body=%s", w.Code, w.Body)
	}
	got := conditional(etag)
	if got.Code != http.StatusOK {
		t.Fatalf("poll after reaction = %d, want 200", got.Code)
	}
	etag2 := got.Header().Get("ETag")
	if etag2 == "" || etag2 == etag {
		t.Fatalf("ETag not rotated by reaction: %q -> %q", etag, etag2)
	}

	// Same for an edit of the first message.
	w = doJSON(t, r, http.MethodPut, "/sessions/room/messages/"+first.Message.ID, "alice", EditMessageRequest{Content: "first, edited"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d body=%s", w.Code, w.Body)
	}
	if got := conditional(etag2); got.Code != http.StatusOK {
		t.Fatalf("poll after edit = %d, want 200", got.Code)
	}
}
