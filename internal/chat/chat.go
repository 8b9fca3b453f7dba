// Package chat provides OpenRouter chat completions for the
// presentation layer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mfreed/repodex/internal/embedder"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "google/gemini-2.5-flash"

var (
	// ErrMissingAPIKey indicates no API key was provided.
	ErrMissingAPIKey = errors.New("chat: API key is required")
	// ErrNoMessages indicates an empty conversation.
	ErrNoMessages = errors.New("chat: at least one message is required")
	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("chat: provider returned no choices")
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// User builds a user-role message.
func User(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// Assistant builds an assistant-role message.
func Assistant(content string) Message {
	return Message{Role: openai.ChatMessageRoleAssistant, Content: content}
}

// Client talks to the OpenRouter chat completion endpoint.
type Client struct {
	client *openai.Client
	model  string
}

// New creates a chat client. An empty model selects DefaultModel; an
// empty baseURL selects the OpenRouter endpoint.
func New(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = embedder.OpenRouterBaseURL
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Model returns the configured chat model identifier.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) buildMessages(messages []Message, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// Complete sends the conversation and returns the full reply. A
// non-empty system prompt is prepended.
func (c *Client) Complete(ctx context.Context, messages []Message, system string) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.buildMessages(messages, system),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends the conversation and invokes fn for each content
// delta as it arrives. Stream returns once the reply is complete or
// fn returns an error.
func (c *Client) Stream(ctx context.Context, messages []Message, system string, fn func(delta string) error) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.buildMessages(messages, system),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			return err
		}
	}
}
