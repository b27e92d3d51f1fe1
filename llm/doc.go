// Package llm is a small provider-agnostic chat client with tool calling.
//
// A Client routes each Request to a registered Provider, picked by the
// request's Provider field, the client default, or the model catalog, and
// runs it through a middleware chain. GollmAdapter backs providers with
// github.com/teilomillet/gollm.
//
//	client := llm.NewClient(
//		llm.WithProvider("openai", adapter),
//		llm.WithMiddleware(llm.LoggingMiddleware(logger)),
//	)
//	resp, err := client.Complete(ctx, llm.Request{
//		Model:    "gpt-4o-mini",
//		Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//
// Errors are classified into a hierarchy rooted at SDKError; IsRetryable
// tells Retry which ones are worth another attempt.
package llm
