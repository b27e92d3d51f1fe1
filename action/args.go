package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Args are the decoded arguments of one call.
type Args map[string]interface{}

// ParseArgs decodes the raw argument string of an action request. An empty
// string decodes to no arguments.
func ParseArgs(raw string) (Args, error) {
	if strings.TrimSpace(raw) == "" {
		return Args{}, nil
	}
	var args Args
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid action arguments: %w", err)
	}
	if args == nil {
		return Args{}, nil
	}
	return args, nil
}

// String returns a string argument.
func (a Args) String(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// Int returns an integer argument.
func (a Args) Int(key string) (int, bool) {
	switch n := a[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// Bool returns a boolean argument.
func (a Args) Bool(key string) (bool, bool) {
	b, ok := a[key].(bool)
	return b, ok
}
