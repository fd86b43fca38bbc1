// internal/analyzer/completer.go
package analyzer

import "context"

// ChatCompleter sends one chat request and returns the text of the first
// reply. Implementations return their own errors unchanged; an empty string
// with a nil error means the remote end answered without content.
type ChatCompleter interface {
	Complete(ctx context.Context, req *ChatRequest) (string, error)
}

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ChatRequest is the provider-neutral form of a multimodal chat call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Schema is nil when the provider should answer in free text.
	Schema *ResponseSchema
}

type Message struct {
	Role  Role
	Parts []ContentPart
}

type ContentPart struct {
	Type     PartType
	Text     string
	ImageURL string
}

// ResponseSchema asks the provider for schema-constrained output.
type ResponseSchema struct {
	Name   string
	Strict bool
	Schema map[string]interface{}
}

// text returns the concatenated text parts of a message.
func (m Message) text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}
