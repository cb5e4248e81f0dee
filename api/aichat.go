package api

import (
	"context"

	"github.com/google/uuid"
)

// ConsultReply is the assistant's answer plus the session it belongs to.
type ConsultReply struct {
	Assistant string `json:"assistant"`
	SessionID string `json:"session_id"`
}

type consultRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// NewChatSessionID mints an id for a fresh consultation thread.
func NewChatSessionID() string {
	return uuid.New().String()
}

// Consult sends one message to the AI tax consultant within the given
// session.
func (c *Client) Consult(ctx context.Context, message, sessionID string) (*ConsultReply, error) {
	var reply ConsultReply
	if err := c.Post(ctx, "/aichat/consult/", consultRequest{Message: message, SessionID: sessionID}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
