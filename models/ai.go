package models

import "time"

// ChatRequest is the payload a client sends for every conversational turn.
type ChatRequest struct {
	ConversationID string        `json:"conversationId"` // stable id of the chat session
	SenderID       string        `json:"senderId"`       // member id or anonymous guest id
	SenderType     SenderType    `json:"senderType"`     // "member" or "guest"
	Question       string        `json:"question"`       // user's message (voice→text or typed)
	Context        []ChatMessage `json:"context,omitempty"`
}

// ChatFrame is one streamed piece of a reply.
type ChatFrame struct {
	ConversationID string `json:"conversationId"`
	Token          string `json:"token"`
	IsFinal        bool   `json:"isFinal"`
	Intent         string `json:"intent,omitempty"`   // only set on the final frame
	Handover       bool   `json:"handover,omitempty"` // true when a human agent should take over
}

// ChatMessage is a single line of the rolling conversation history.
type ChatMessage struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
