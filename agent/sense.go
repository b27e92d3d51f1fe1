package agent

import (
	"encoding/json"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"
)

// Environment is the sensed context appended to the system prompt.
type Environment struct {
	AgentName        string            `json:"agent_name"`
	OS               string            `json:"os"`
	Arch             string            `json:"arch"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	DateTime         string            `json:"date_time"`
	User             string            `json:"user,omitempty"`
	LastAction       *string           `json:"last_action"`
	LastActionStatus *string           `json:"last_action_status"`
	Facts            map[string]string `json:"facts,omitempty"`
}

// senseEnvironment describes the host. The memory and facts are filled in
// by the caller.
func senseEnvironment(agentName string, now time.Time) Environment {
	env := Environment{
		AgentName: agentName,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		DateTime:  now.Format(time.RFC1123),
	}
	if wd, err := os.Getwd(); err == nil {
		env.WorkingDirectory = wd
	}
	if u, err := user.Current(); err == nil {
		env.User = u.Username
	}
	return env
}

// buildSystemPrompt joins the configured message and the environment JSON.
func buildSystemPrompt(message string, env Environment) string {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return message
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(message))
	sb.WriteString("\n\n")
	sb.Write(b)
	return sb.String()
}
