package provider

import "context"

// FakeProvider is a fixed-response test double. Judge-detector tests use it
// to pin down the otherwise non-deterministic model call.
type FakeProvider struct {
	ResponseText string
	Error        error
	// Block makes the call wait until the context is done, simulating a
	// slow upstream. The context error is returned.
	Block bool
}

func (f *FakeProvider) ChatCompletion(ctx context.Context, req *Request) (*Response, error) {
	if f.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.Error != nil {
		return nil, f.Error
	}

	return &Response{
		Message: Message{
			Role:    "assistant",
			Content: f.ResponseText,
		},
		Usage: Usage{
			PromptTokens:     2,
			CompletionTokens: 3,
			TotalTokens:      5,
		},
	}, nil
}

func NewFake(response string) *FakeProvider {
	return &FakeProvider{ResponseText: response}
}
