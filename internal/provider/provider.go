package provider

import "context"

// Message is a normalized chat message sent to or received from a model.
type Message struct {
	Role    string
	Content string
}

// Request is a normalized chat-completion request.
type Request struct {
	Model    string
	Messages []Message
}

// Usage holds token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a normalized chat-completion response.
type Response struct {
	Message Message
	Usage   Usage
}

// Provider is the interface to an upstream generative-model service. The
// scan pipeline treats it as an opaque, possibly-slow, possibly-failing
// dependency; retry and auth internals live behind this interface.
type Provider interface {
	ChatCompletion(ctx context.Context, req *Request) (*Response, error)
}
