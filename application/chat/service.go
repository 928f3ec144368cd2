package chat

import (
	"context"
	"fmt"

	"github.com/Pacifique5/AI-BOT/domain/chat"
)

// Service orchestrates the chat relay use case: validate the inbound request,
// build the upstream conversation, call the completion provider and extract
// the assistant reply.
type Service struct {
	provider    chat.CompletionProvider
	model       string
	temperature float64
}

// NewService wires the service with its provider and the configured defaults
// applied when a request omits model or temperature.
func NewService(provider chat.CompletionProvider, model string, temperature float64) *Service {
	return &Service{
		provider:    provider,
		model:       model,
		temperature: temperature,
	}
}

func (s *Service) Chat(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	conversation, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	messages := buildUpstreamMessages(req.Persona, conversation)

	model := req.Model
	if model == "" {
		model = s.model
	}
	temperature := s.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	completion, err := s.provider.Complete(ctx, model, temperature, messages)
	if err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, &chat.SchemaError{Message: "response missing choices"}
	}

	reply := completion.Choices[0].Message.Content.Text()
	if reply == "" {
		return nil, &chat.SchemaError{Message: "response missing text content"}
	}

	return &chat.Response{Reply: reply}, nil
}

// validateRequest checks the request and returns the conversational messages
// that survive filtering. Caller-supplied system messages are dropped here:
// the persona prompt is the only system message the upstream ever sees.
func validateRequest(req *chat.Request) ([]chat.Message, error) {
	if len(req.Messages) == 0 {
		return nil, &chat.ValidationError{Message: "messages cannot be empty"}
	}

	for i, msg := range req.Messages {
		if msg.Role != chat.RoleUser && msg.Role != chat.RoleAssistant && msg.Role != chat.RoleSystem {
			return nil, &chat.ValidationError{
				Message: fmt.Sprintf("message %d: invalid role '%s' (must be user, assistant, or system)", i, msg.Role),
			}
		}
		if msg.Content == "" {
			return nil, &chat.ValidationError{
				Message: fmt.Sprintf("message %d: content cannot be empty", i),
			}
		}
	}

	if req.Temperature != nil && (*req.Temperature < 0.0 || *req.Temperature > 2.0) {
		return nil, &chat.ValidationError{Message: "temperature must be between 0.0 and 2.0"}
	}

	conversation := make([]chat.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == chat.RoleSystem {
			continue
		}
		conversation = append(conversation, msg)
	}

	if len(conversation) == 0 {
		return nil, &chat.ValidationError{Message: "must include at least one user/assistant message"}
	}

	return conversation, nil
}

// buildUpstreamMessages prepends the persona system prompt to the filtered
// conversation, preserving message order.
func buildUpstreamMessages(persona string, conversation []chat.Message) []chat.UpstreamMessage {
	if persona == "" {
		persona = chat.DefaultPersona
	}

	messages := make([]chat.UpstreamMessage, 0, len(conversation)+1)
	messages = append(messages, chat.UpstreamMessage{Role: chat.RoleSystem, Content: persona})
	for _, msg := range conversation {
		messages = append(messages, chat.UpstreamMessage{Role: msg.Role, Content: msg.Content})
	}

	return messages
}
