package agent

// DefaultSystemMessage introduces the agent to the model.
const DefaultSystemMessage = `You are an agent that completes tasks on the user's computer by running code.
Use the execute_code action to run shell commands or programs, and answer in plain text once the task is done.
If an action fails, read the error and try a different approach instead of repeating the same call.
The JSON block below describes the environment you are running in.`

// Config tunes a Session.
type Config struct {
	AgentName          string `yaml:"name" json:"name"`
	SystemMessage      string `yaml:"system_message" json:"system_message"`
	MaxTurns           int    `yaml:"max_turns" json:"max_turns"` // decisions per Send, negative = unlimited
	HistoryWindow      int    `yaml:"history_window" json:"history_window"`
	AllowCodeExecution bool   `yaml:"allow_code_execution" json:"allow_code_execution"`
	ToolOutputLimit    int    `yaml:"tool_output_limit" json:"tool_output_limit"` // characters
	EventBuffer        int    `yaml:"event_buffer" json:"event_buffer"`
}

func DefaultConfig() Config {
	return Config{
		AgentName:       "execagent",
		SystemMessage:   DefaultSystemMessage,
		MaxTurns:        25,
		HistoryWindow:   10,
		ToolOutputLimit: 30000,
		EventBuffer:     256,
	}
}

// Merge applies non-zero fields from source onto c. AllowCodeExecution can
// only be switched on.
func (c *Config) Merge(source *Config) {
	if source.AgentName != "" {
		c.AgentName = source.AgentName
	}
	if source.SystemMessage != "" {
		c.SystemMessage = source.SystemMessage
	}
	if source.MaxTurns != 0 {
		c.MaxTurns = source.MaxTurns
	}
	if source.HistoryWindow > 0 {
		c.HistoryWindow = source.HistoryWindow
	}
	if source.AllowCodeExecution {
		c.AllowCodeExecution = true
	}
	if source.ToolOutputLimit > 0 {
		c.ToolOutputLimit = source.ToolOutputLimit
	}
	if source.EventBuffer > 0 {
		c.EventBuffer = source.EventBuffer
	}
}
