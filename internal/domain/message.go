package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn. Messages are created by the external
// chat system and consumed read-only here.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// Contents extracts the content strings of msgs in order, dropping
// blank entries.
func Contents(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		out = append(out, m.Content)
	}
	return out
}

// UserContents extracts content strings for user-role messages only.
// Role filtering is a caller decision; the core accepts either.
func UserContents(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != RoleUser || m.Content == "" {
			continue
		}
		out = append(out, m.Content)
	}
	return out
}

// Window is an ordered slice of message indices covering a contiguous
// range of the conversation. Windows are derived, never mutated.
type Window struct {
	Indices  []int `json:"indices"`
	StartIdx int   `json:"start_idx"`
	EndIdx   int   `json:"end_idx"`
}
