// Package action defines the capabilities the agent can invoke, their call
// schemas, and the registry that validates and dispatches calls.
package action
