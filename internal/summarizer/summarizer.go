// Package summarizer produces document summaries with a generative text
// model via the Bedrock Converse API.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// ConverseAPI is the interface for the Bedrock Converse operation.
// Used for testing with mock implementations.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Summarizer calls a Bedrock text model to summarize documents.
type Summarizer struct {
	modelID string
	prompt  string
	client  ConverseAPI
}

// New creates a Summarizer backed by a real Bedrock runtime client.
func New(cfg aws.Config, modelID, prompt string) *Summarizer {
	return NewWithClient(bedrockruntime.NewFromConfig(cfg), modelID, prompt)
}

// NewWithClient creates a Summarizer with a custom client, used for testing.
func NewWithClient(client ConverseAPI, modelID, prompt string) *Summarizer {
	return &Summarizer{
		modelID: modelID,
		prompt:  prompt,
		client:  client,
	}
}

// Summarize sends the configured prompt together with the document content
// to the model and returns the generated summary text. The format must be
// one of the Converse document formats (pdf, csv, doc, docx, xls, xlsx,
// html, txt, md), which matches the pipeline's allowed extension list.
func (s *Summarizer) Summarize(ctx context.Context, name, format string, doc []byte) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(s.modelID),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: s.prompt},
				&types.ContentBlockMemberDocument{Value: types.DocumentBlock{
					Format: types.DocumentFormat(format),
					Name:   aws.String(name),
					Source: &types.DocumentSourceMemberBytes{Value: doc},
				}},
			},
		}},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying Bedrock API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			delay := backoffDelay(attempt)
			if err := sleepWithContext(ctx, delay); err != nil {
				return "", fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		out, err := s.client.Converse(ctx, input)
		if err == nil {
			return extractText(out)
		}

		lastErr = err
		slog.Warn("Bedrock API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return "", fmt.Errorf("Bedrock API request failed after %d retries: %w", maxRetries, lastErr)
}

// extractText pulls the first text block out of the model response.
func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected model output type %T", out.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("model response contains no text block")
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
