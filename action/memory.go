package action

import (
	"context"
	"fmt"
)

// FactStore persists the key/value facts the agent is asked to remember.
type FactStore interface {
	SetFact(ctx context.Context, key, value string) error
	Fact(ctx context.Context, key string) (string, bool, error)
	DeleteFact(ctx context.Context, key string) error
	Facts(ctx context.Context) (map[string]string, error)
}

// MemoryActions returns the remember, recall and forget actions backed by
// store.
func MemoryActions(store FactStore) []Action {
	return []Action{&remember{store}, &recall{store}, &forget{store}}
}

var keyParam = ParameterSpec{
	Name:        "key",
	Type:        TypeString,
	Description: "Name of the fact",
	Required:    true,
}

type remember struct{ store FactStore }

func (a *remember) Definition() Definition {
	return Definition{
		Name:        "remember",
		Description: "Store a fact so it is available in later turns and sessions",
		Parameters: []ParameterSpec{
			keyParam,
			{Name: "value", Type: TypeString, Description: "Value to store", Required: true},
		},
	}
}

func (a *remember) Run(ctx context.Context, args Args) (string, error) {
	key, _ := args.String("key")
	value, _ := args.String("value")
	if err := a.store.SetFact(ctx, key, value); err != nil {
		return "", fmt.Errorf("remember %s: %w", key, err)
	}
	return fmt.Sprintf("Remembered %s", key), nil
}

type recall struct{ store FactStore }

func (a *recall) Definition() Definition {
	return Definition{
		Name:        "recall",
		Description: "Look up a previously remembered fact",
		Parameters:  []ParameterSpec{keyParam},
	}
}

func (a *recall) Run(ctx context.Context, args Args) (string, error) {
	key, _ := args.String("key")
	value, ok, err := a.store.Fact(ctx, key)
	if err != nil {
		return "", fmt.Errorf("recall %s: %w", key, err)
	}
	if !ok {
		return fmt.Sprintf("Nothing remembered for %s", key), nil
	}
	return value, nil
}

type forget struct{ store FactStore }

func (a *forget) Definition() Definition {
	return Definition{
		Name:        "forget",
		Description: "Remove a remembered fact",
		Parameters:  []ParameterSpec{keyParam},
	}
}

func (a *forget) Run(ctx context.Context, args Args) (string, error) {
	key, _ := args.String("key")
	if err := a.store.DeleteFact(ctx, key); err != nil {
		return "", fmt.Errorf("forget %s: %w", key, err)
	}
	return fmt.Sprintf("Forgot %s", key), nil
}
