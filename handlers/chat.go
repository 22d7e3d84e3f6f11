package handlers

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"sync"
	"time"

	"harold/middleware"
	"harold/models"
	ai "harold/services/intelligence"
	"harold/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 16 * 1024
)

// ChatAdvancer runs one conversational turn.
type ChatAdvancer interface {
	Advance(ctx context.Context, turn ai.Turn) (*ai.Reply, error)
}

type ChatHandler struct {
	chat     ChatAdvancer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewChatHandler(chat ChatAdvancer, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are policed by the CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// turnFrom maps a wire request onto a turn. A member token overrides the
// declared sender.
func turnFrom(c *gin.Context, req models.ChatRequest) ai.Turn {
	turn := ai.Turn{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		SenderType:     req.SenderType,
		Text:           req.Question,
		Context:        req.Context,
	}
	if id, ok := middleware.MemberID(c); ok {
		turn.SenderID = id
		turn.SenderType = models.SenderMember
	}
	return turn
}

// frames yields the wire frames of a reply. Intent and handover ride on the final frame.
func frames(conversationID string, reply *ai.Reply) iter.Seq[models.ChatFrame] {
	return func(yield func(models.ChatFrame) bool) {
		for chunk, final := range reply.Stream {
			f := models.ChatFrame{ConversationID: conversationID, Token: chunk, IsFinal: final}
			if final {
				f.Intent = string(reply.Intent)
				f.Handover = reply.Handover
			}
			if !yield(f) {
				return
			}
		}
	}
}

func busyFrames(conversationID string) []models.ChatFrame {
	return []models.ChatFrame{
		{ConversationID: conversationID, Token: ai.BusyText},
		{ConversationID: conversationID, IsFinal: true},
	}
}

// WebSocket serves GET /ws/chat. Each inbound message is one turn; its frames
// are written in order before the next message is read.
func (h *ChatHandler) WebSocket(c *gin.Context) {
	logger := requestLogger(c, h.logger)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		var req models.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Info("Websocket closed", zap.Error(err))
			}
			return
		}

		reply, err := h.chat.Advance(ctx, turnFrom(c, req))
		switch {
		case errors.Is(err, ai.ErrInvalidTurn):
			logger.Debug("Dropped invalid turn", zap.String("conversationId", req.ConversationID))
			continue
		case errors.Is(err, ai.ErrConversationBusy):
			for _, f := range busyFrames(req.ConversationID) {
				if err := write(f); err != nil {
					return
				}
			}
			continue
		case err != nil:
			logger.Error("Chat turn failed", zap.Error(err))
			return
		}

		for f := range frames(req.ConversationID, reply) {
			if err := write(f); err != nil {
				logger.Info("Client went away mid-reply", zap.Error(err))
				return
			}
		}
	}
}

// Stream serves POST /api/chat as server-sent events, one "message" event per frame.
func (h *ChatHandler) Stream(c *gin.Context) {
	logger := requestLogger(c, h.logger)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid chat request", err.Error())
		return
	}

	reply, err := h.chat.Advance(c.Request.Context(), turnFrom(c, req))
	switch {
	case errors.Is(err, ai.ErrInvalidTurn):
		utils.JSONError(c, http.StatusBadRequest, "Invalid chat request", "conversationId, senderId, senderType and question are required")
		return
	case errors.Is(err, ai.ErrConversationBusy):
		c.JSON(http.StatusConflict, gin.H{"error": ai.BusyText})
		return
	case err != nil:
		logger.Error("Chat turn failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Chat failed", "")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	for f := range frames(req.ConversationID, reply) {
		if ctx.Err() != nil {
			logger.Info("Client went away mid-reply", zap.String("conversationId", req.ConversationID))
			return
		}
		c.SSEvent("message", f)
		c.Writer.Flush()
	}
}
