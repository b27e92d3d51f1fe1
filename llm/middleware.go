package llm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware logs every completion at debug level and failures at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		attrs := []any{
			"provider", req.Provider,
			"model", req.Model,
			"messages", len(req.Messages),
			"tools", len(req.Tools),
			"duration", time.Since(start),
		}
		if err != nil {
			logger.WarnContext(ctx, "llm completion failed", append(attrs, "error", err)...)
			return nil, err
		}
		logger.DebugContext(ctx, "llm completion",
			append(attrs,
				"finish_reason", resp.FinishReason,
				"tool_calls", len(resp.Message.ToolCalls),
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens,
			)...)
		return resp, nil
	}
}
