package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	reservationRepo "harold/database/repository/reservation"
	"harold/middleware"
	"harold/models"
	ai "harold/services/intelligence"
	"harold/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedChat answers every valid turn with the same chunks.
type scriptedChat struct {
	mu     sync.Mutex
	turns  []ai.Turn
	chunks []string
	err    error
}

func (s *scriptedChat) Advance(_ context.Context, turn ai.Turn) (*ai.Reply, error) {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(turn.Text) == "" {
		return nil, ai.ErrInvalidTurn
	}
	chunks := s.chunks
	return &ai.Reply{
		Intent: models.IntentGreeting,
		Stream: func(yield func(string, bool) bool) {
			for _, c := range chunks {
				if !yield(c, false) {
					return
				}
			}
			yield("", true)
		},
	}, nil
}

func (s *scriptedChat) lastTurn() ai.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns[len(s.turns)-1]
}

func newChatRouter(chat ChatAdvancer) *gin.Engine {
	h := NewChatHandler(chat, zap.NewNop())
	r := gin.New()
	r.Use(middleware.OptionalMemberAuth(zap.NewNop()))
	r.GET("/ws/chat", h.WebSocket)
	r.POST("/api/chat", h.Stream)
	return r
}

const chatBody = `{"conversationId":"c1","senderId":"g-1","senderType":"guest","question":"hello"}`

func readSSEFrames(t *testing.T, body string) []models.ChatFrame {
	t.Helper()
	var frames []models.ChatFrame
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data:")
		if !ok {
			continue
		}
		var f models.ChatFrame
		require.NoError(t, json.Unmarshal([]byte(data), &f))
		frames = append(frames, f)
	}
	return frames
}

func TestChatStream_SSEFrames(t *testing.T) {
	chat := &scriptedChat{chunks: []string{"Hello! ", "How can I help?"}}
	r := newChatRouter(chat)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	frames := readSSEFrames(t, rec.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, "Hello! ", frames[0].Token)
	assert.False(t, frames[1].IsFinal)
	assert.True(t, frames[2].IsFinal)
	assert.Equal(t, "greeting", frames[2].Intent)
	assert.Equal(t, "c1", frames[2].ConversationID)

	turn := chat.lastTurn()
	assert.Equal(t, models.SenderGuest, turn.SenderType)
	assert.Equal(t, "g-1", turn.SenderID)
}

func TestChatStream_MemberTokenOverridesSender(t *testing.T) {
	chat := &scriptedChat{chunks: []string{"hi"}}
	r := newChatRouter(chat)
	token, err := utils.GenerateToken("member-9", "m@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	turn := chat.lastTurn()
	assert.Equal(t, models.SenderMember, turn.SenderType)
	assert.Equal(t, "member-9", turn.SenderID)
}

func TestChatStream_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"malformed json", `{"conversationId":`, nil, http.StatusBadRequest},
		{"invalid turn", `{"conversationId":"c1","senderId":"s","senderType":"guest","question":" "}`, nil, http.StatusBadRequest},
		{"busy", chatBody, ai.ErrConversationBusy, http.StatusConflict},
		{"unexpected", chatBody, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newChatRouter(&scriptedChat{err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func dialChat(t *testing.T, r http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readTurn(t *testing.T, conn *websocket.Conn) []models.ChatFrame {
	t.Helper()
	var frames []models.ChatFrame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f models.ChatFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		if f.IsFinal {
			return frames
		}
	}
}

func TestChatWebSocket_TurnsInOrder(t *testing.T) {
	chat := &scriptedChat{chunks: []string{"one ", "two"}}
	conn := dialChat(t, newChatRouter(chat))

	// An invalid turn is dropped without frames; the next turn still gets its reply.
	require.NoError(t, conn.WriteJSON(models.ChatRequest{ConversationID: "c1", SenderID: "s", SenderType: models.SenderGuest, Question: ""}))
	require.NoError(t, conn.WriteJSON(models.ChatRequest{ConversationID: "c1", SenderID: "s", SenderType: models.SenderGuest, Question: "hi"}))

	frames := readTurn(t, conn)
	require.Len(t, frames, 3)
	assert.Equal(t, "one ", frames[0].Token)
	assert.Equal(t, "two", frames[1].Token)
	assert.Equal(t, "greeting", frames[2].Intent)

	require.NoError(t, conn.WriteJSON(models.ChatRequest{ConversationID: "c1", SenderID: "s", SenderType: models.SenderGuest, Question: "again"}))
	assert.Len(t, readTurn(t, conn), 3)
}

func TestChatWebSocket_Busy(t *testing.T) {
	conn := dialChat(t, newChatRouter(&scriptedChat{err: ai.ErrConversationBusy}))

	require.NoError(t, conn.WriteJSON(models.ChatRequest{ConversationID: "c1", SenderID: "s", SenderType: models.SenderGuest, Question: "hi"}))

	frames := readTurn(t, conn)
	require.Len(t, frames, 2)
	assert.Equal(t, ai.BusyText, frames[0].Token)
	assert.True(t, frames[1].IsFinal)
}

type stubReservations map[string]*models.Reservation

func (s stubReservations) GetReservation(_ context.Context, id string) (*models.Reservation, error) {
	if id == "broken" {
		return nil, errors.New("mongo: connection closed")
	}
	res, ok := s[id]
	if !ok {
		return nil, reservationRepo.ErrReservationNotFound
	}
	return res, nil
}

func TestGetReservation(t *testing.T) {
	h := NewReservationHandler(stubReservations{
		"r1": {ID: "r1", RoomTypes: []string{"suite"}, PaymentStatus: models.PaymentPending},
	}, zap.NewNop())
	r := gin.New()
	r.GET("/api/reservations/:id", h.GetReservation)

	tests := []struct {
		id   string
		code int
	}{
		{"r1", http.StatusOK},
		{"missing", http.StatusNotFound},
		{"broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reservations/"+tt.id, nil))
		assert.Equal(t, tt.code, rec.Code, tt.id)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reservations/r1", nil))
	var got models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", Health)
	ctx := context.Background()

	utils.CheckHealth(ctx, nil, utils.PingFunc(func(context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	utils.CheckHealth(ctx, nil, utils.PingFunc(func(context.Context) error { return errors.New("down") }))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
