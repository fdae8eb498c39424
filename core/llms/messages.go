package llms

import "context"

// Role describes who a history message is from.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Msg is a single message in the conversation history kept by the turn
// engine. A new user message always starts a new turn; at most one trailing
// assistant message is merged in place per turn.
type Msg struct {
	Role Role
	Text string
}

// Source is an attribution attached to a completion.
type Source struct {
	URL   string
	Title string
}

// Completion is the result of one model call.
type Completion struct {
	Text    string
	Sources []Source
}

// SamplingParams carries the per-request sampling knobs the generation
// strategies vary between the fast first-sentence call and the fuller
// continuation call.
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// Client is the language-model collaborator contract. Implementations must
// honor ctx cancellation; callers re-check their own liveness after every
// round-trip because a response may legitimately arrive after an abort.
type Client interface {
	Generate(ctx context.Context, systemPrompt string, history []Msg, model string, params SamplingParams) (*Completion, error)
}

// OneSentenceClient is implemented by clients that can constrain a response
// to exactly one sentence server-side (e.g. through a structured response
// format). The fast-first strategy prefers it over prompt-level constraints.
type OneSentenceClient interface {
	GenerateOneSentence(ctx context.Context, systemPrompt string, history []Msg, model string) (*Completion, error)
}
