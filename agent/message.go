package agent

import "slices"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ActionRequest is one action the decision source asked for. RawArguments
// is the unparsed JSON text.
type ActionRequest struct {
	ID           string `json:"id"`
	ActionName   string `json:"action_name"`
	RawArguments string `json:"raw_arguments"`
}

// Message is one entry of the conversation history. Assistant messages may
// carry ActionRequests; tool messages answer one of them through RequestID.
type Message struct {
	Role           Role            `json:"role"`
	Content        string          `json:"content,omitempty"`
	ActionRequests []ActionRequest `json:"action_requests,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	ActionName     string          `json:"action_name,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, requests ...ActionRequest) Message {
	return Message{Role: RoleAssistant, Content: content, ActionRequests: requests}
}

func ToolMessage(req ActionRequest, content string) Message {
	return Message{Role: RoleTool, Content: content, RequestID: req.ID, ActionName: req.ActionName}
}

// window returns the last n messages of history. A window never starts with
// tool messages whose assistant message fell outside it.
func window(history []Message, n int) []Message {
	start := 0
	if n > 0 && len(history) > n {
		start = len(history) - n
	}
	for start < len(history) && history[start].Role == RoleTool {
		start++
	}
	return slices.Clone(history[start:])
}
