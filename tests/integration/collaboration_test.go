package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/internal/core/services"
	handlers "notemesh/internal/handlers/http"
	"notemesh/internal/infrastructure/gateway"
	"notemesh/internal/infrastructure/middleware"
	"notemesh/internal/infrastructure/repositories/memory"
	"notemesh/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStack wires the full service the way the server binary does, on
// in-memory repositories.
type testStack struct {
	srv   *httptest.Server
	auth  services.AuthService
	users ports.UserRepository
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error", "console").Sugar()

	noteRepo := memory.NewMemoryNoteRepository()
	categoryRepo := memory.NewMemoryCategoryRepository()
	inviteRepo := memory.NewMemoryInviteRepository()
	shareRepo := memory.NewMemoryShareRepository()
	userRepo := memory.NewMemoryUserRepository()

	authService := services.NewAuthService("integration-secret", time.Hour, 24*time.Hour)
	accessService := services.NewAccessService(noteRepo, shareRepo, inviteRepo, nil, log)
	noteService := services.NewNoteService(noteRepo, categoryRepo, shareRepo, inviteRepo, nil, log)
	inviteService := services.NewInviteService(noteRepo, inviteRepo, shareRepo, userRepo, nil, time.Hour, "http://frontend.test", log)

	registry := gateway.NewRegistry()
	hub := gateway.NewHub(registry, 32, nil, log)
	wsServer := gateway.NewWebSocketServer(accessService, authService, hub, gateway.Options{}, nil, log)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))

	handlers.NewAuthHandler(authService).SetupRoutes(router)
	handlers.NewNoteHandler(noteService, authService).SetupRoutes(router)
	handlers.NewShareHandler(inviteService, authService).SetupRoutes(router)

	ws := router.Group("/ws")
	ws.Use(middleware.OptionalAuthMiddleware(authService))
	ws.GET("/note/:note_id", wsServer.HandleWebSocket)
	ws.GET("/note/:note_id/:token", wsServer.HandleWebSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testStack{srv: srv, auth: authService, users: userRepo}
}

func (s *testStack) token(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := s.auth.GenerateToken(domain.UserID(userID), username)
	require.NoError(t, err)
	return token
}

func (s *testStack) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func (s *testStack) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func TestOwnerAndInvitedGuestCollaborate(t *testing.T) {
	stack := newTestStack(t)
	ownerToken := stack.token(t, "alice", "alice")

	// Owner creates a note over REST.
	resp := stack.request(t, http.MethodPost, "/api/v1/notes", ownerToken, map[string]string{
		"title":   "Retro notes",
		"content": "went well:",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	noteID := decodeBody(t, resp)["id"].(string)
	require.NotEmpty(t, noteID)

	// Owner invites a guest by email and gets the token back.
	resp = stack.request(t, http.MethodPost, fmt.Sprintf("/api/v1/notes/%s/invite", noteID), ownerToken, map[string]string{
		"email": "guest@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	inviteToken := body["token"].(string)
	require.NotEmpty(t, inviteToken)
	assert.Contains(t, body["link"].(string), inviteToken)

	// Owner joins the live channel with their JWT.
	ownerConn := stack.dial(t, fmt.Sprintf("/ws/note/%s?auth=%s", noteID, ownerToken))
	msg := readFrame(t, ownerConn)
	assert.Equal(t, "user_count", msg["type"])
	assert.Equal(t, float64(1), msg["count"])

	// Guest joins with the invite token; both see the room grow.
	guestConn := stack.dial(t, fmt.Sprintf("/ws/note/%s?token=%s", noteID, inviteToken))
	for _, conn := range []*websocket.Conn{ownerConn, guestConn} {
		msg := readFrame(t, conn)
		assert.Equal(t, "user_count", msg["type"])
		assert.Equal(t, float64(2), msg["count"])
	}

	// The guest's edit reaches both participants, the guest included.
	err := guestConn.WriteMessage(websocket.TextMessage, []byte(`{"delta":{"op":"insert","pos":3,"text":"hi"},"clientId":"c1"}`))
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{ownerConn, guestConn} {
		msg := readFrame(t, conn)
		assert.Equal(t, "message", msg["type"])
		assert.Equal(t, "c1", msg["clientId"])
	}

	// Guest leaves; the owner sees the count drop.
	require.NoError(t, guestConn.Close())
	msg = readFrame(t, ownerConn)
	assert.Equal(t, "user_count", msg["type"])
	assert.Equal(t, float64(1), msg["count"])
}

func TestStrangerCannotJoinLiveChannel(t *testing.T) {
	stack := newTestStack(t)
	ownerToken := stack.token(t, "alice", "alice")
	strangerToken := stack.token(t, "mallory", "mallory")

	resp := stack.request(t, http.MethodPost, "/api/v1/notes", ownerToken, map[string]string{"title": "Private"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	noteID := decodeBody(t, resp)["id"].(string)

	url := "ws" + strings.TrimPrefix(stack.srv.URL, "http") + fmt.Sprintf("/ws/note/%s?auth=%s", noteID, strangerToken)
	conn, wsResp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Nil(t, conn)
	require.NotNil(t, wsResp)
	defer wsResp.Body.Close()
	assert.Equal(t, http.StatusForbidden, wsResp.StatusCode)
}

func TestSharedUserJoinsWithJWT(t *testing.T) {
	stack := newTestStack(t)
	ownerToken := stack.token(t, "alice", "alice")
	bobToken := stack.token(t, "bob", "bob")

	resp := stack.request(t, http.MethodPost, "/api/v1/notes", ownerToken, map[string]string{"title": "Shared doc"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	noteID := decodeBody(t, resp)["id"].(string)

	resp = stack.request(t, http.MethodPost, fmt.Sprintf("/api/v1/notes/%s/share", noteID), ownerToken, map[string]string{
		"user_id": "bob",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Sharing twice conflicts.
	resp = stack.request(t, http.MethodPost, fmt.Sprintf("/api/v1/notes/%s/share", noteID), ownerToken, map[string]string{
		"user_id": "bob",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	conn := stack.dial(t, fmt.Sprintf("/ws/note/%s?auth=%s", noteID, bobToken))
	msg := readFrame(t, conn)
	assert.Equal(t, "user_count", msg["type"])
	assert.Equal(t, float64(1), msg["count"])

	// Bob also sees the note over REST now.
	resp = stack.request(t, http.MethodGet, "/api/v1/notes/"+noteID, bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Shared doc", body["title"])
}

func TestInvitedGuestKeepsDurableAccess(t *testing.T) {
	stack := newTestStack(t)
	ownerToken := stack.token(t, "alice", "alice")

	resp := stack.request(t, http.MethodPost, "/api/v1/notes", ownerToken, map[string]string{"title": "Handover"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	noteID := decodeBody(t, resp)["id"].(string)

	resp = stack.request(t, http.MethodPost, fmt.Sprintf("/api/v1/notes/%s/invite", noteID), ownerToken, map[string]string{
		"email": "guest@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inviteToken := decodeBody(t, resp)["token"].(string)

	// The invite created an account for the email and granted it the note.
	guest, err := stack.users.GetByEmail(context.Background(), "guest@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, guest.ID)

	// The guest's own JWT opens the note without the invite token, so access
	// outlives the token.
	guestToken := stack.token(t, string(guest.ID), guest.Username)
	resp = stack.request(t, http.MethodGet, "/api/v1/notes/"+noteID, guestToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	conn := stack.dial(t, fmt.Sprintf("/ws/note/%s?auth=%s", noteID, guestToken))
	msg := readFrame(t, conn)
	assert.Equal(t, "user_count", msg["type"])

	// The invite link's path-token form works for the live channel too.
	pathConn := stack.dial(t, fmt.Sprintf("/ws/note/%s/%s", noteID, inviteToken))
	msg = readFrame(t, pathConn)
	assert.Equal(t, "user_count", msg["type"])
	assert.Equal(t, float64(2), msg["count"])
}

func TestInviteTokenGrantsRESTAccessToExactlyOneNote(t *testing.T) {
	stack := newTestStack(t)
	ownerToken := stack.token(t, "alice", "alice")

	createNote := func(title string) string {
		resp := stack.request(t, http.MethodPost, "/api/v1/notes", ownerToken, map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return decodeBody(t, resp)["id"].(string)
	}
	invited := createNote("Invited")
	other := createNote("Other")

	resp := stack.request(t, http.MethodPost, fmt.Sprintf("/api/v1/notes/%s/invite", invited), ownerToken, map[string]string{
		"email": "guest@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inviteToken := decodeBody(t, resp)["token"].(string)

	// The invited note opens with the token alone.
	resp = stack.request(t, http.MethodGet, fmt.Sprintf("/api/v1/notes/%s?token=%s", invited, inviteToken), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The same token does not open any other note.
	resp = stack.request(t, http.MethodGet, fmt.Sprintf("/api/v1/notes/%s?token=%s", other, inviteToken), "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
