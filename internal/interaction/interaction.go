package interaction

import (
	"errors"
	"fmt"
	"strings"
)

// Roles accepted in a prompt turn.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prompt message inside an interaction.
type Turn struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// LLMInteraction is a normalized, immutable record of one exchange with an
// LLM: an opaque id, the originating service name, and the ordered prompt
// turns. Construct it with New; the turn slice is copied on the way in and on
// the way out so no caller can mutate a scan in flight.
type LLMInteraction struct {
	id      string
	service string
	turns   []Turn
}

var (
	ErrMissingID = errors.New("interaction id is empty")
	ErrNoTurns   = errors.New("interaction has no prompt turns")
)

// New validates and builds an interaction.
func New(id, serviceName string, turns []Turn) (*LLMInteraction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}
	if len(turns) == 0 {
		return nil, ErrNoTurns
	}
	for i, t := range turns {
		switch t.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return nil, fmt.Errorf("turn %d has invalid role %q", i, t.Role)
		}
	}

	copied := make([]Turn, len(turns))
	copy(copied, turns)

	return &LLMInteraction{
		id:      id,
		service: serviceName,
		turns:   copied,
	}, nil
}

// FromUserPrompt builds a single user-turn interaction. Mostly a test and
// API-edge convenience.
func FromUserPrompt(id, serviceName, content string) (*LLMInteraction, error) {
	return New(id, serviceName, []Turn{{Role: RoleUser, Content: content}})
}

// ID returns the interaction identifier.
func (in *LLMInteraction) ID() string { return in.id }

// ServiceName returns the originating service name.
func (in *LLMInteraction) ServiceName() string { return in.service }

// Turns returns a copy of the ordered prompt turns.
func (in *LLMInteraction) Turns() []Turn {
	out := make([]Turn, len(in.turns))
	copy(out, in.turns)
	return out
}

// SystemPrompt returns the content of the first system turn, or "".
func (in *LLMInteraction) SystemPrompt() string {
	for _, t := range in.turns {
		if t.Role == RoleSystem {
			return t.Content
		}
	}
	return ""
}

// LastUserPrompt returns the content of the last user turn, or "".
func (in *LLMInteraction) LastUserPrompt() string {
	for i := len(in.turns) - 1; i >= 0; i-- {
		if in.turns[i].Role == RoleUser {
			return in.turns[i].Content
		}
	}
	return ""
}

// Flatten joins all turn contents in order, separated by newlines. Detectors
// that scan the whole conversation use this.
func (in *LLMInteraction) Flatten() string {
	var b strings.Builder
	for i, t := range in.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Content)
	}
	return b.String()
}
