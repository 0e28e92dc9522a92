package chatbot

import (
	"context"
	"fmt"
)

// Responder produces a chatbot reply for a user message.
type Responder interface {
	Respond(ctx context.Context, cfg *Config, message string) (string, error)
}

// EchoResponder is the placeholder responder used until a real model
// integration is wired in.
type EchoResponder struct{}

// NewEchoResponder creates the demo responder.
func NewEchoResponder() *EchoResponder {
	return &EchoResponder{}
}

func (e *EchoResponder) Respond(_ context.Context, _ *Config, message string) (string, error) {
	return fmt.Sprintf(`Thank you for your message: %q. This is a demo response from your AI chatbot. In a real implementation, this would connect to OpenAI, Anthropic, or another AI provider.`, message), nil
}

var _ Responder = (*EchoResponder)(nil)
