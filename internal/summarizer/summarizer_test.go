package summarizer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// mockConverseClient implements ConverseAPI for testing.
type mockConverseClient struct {
	converseFn func(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	callCount  int
	lastInput  *bedrockruntime.ConverseInput
}

func (m *mockConverseClient) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.converseFn != nil {
		return m.converseFn(ctx, params, optFns...)
	}
	return textOutput("a fine summary"), nil
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: text},
				},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	mock := &mockConverseClient{}
	s := NewWithClient(mock, "model-1", "Summarize this document.")

	summary, err := s.Summarize(context.Background(), "Summary", "pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "a fine summary" {
		t.Errorf("summary: got %q, want %q", summary, "a fine summary")
	}

	input := mock.lastInput
	if got := aws.ToString(input.ModelId); got != "model-1" {
		t.Errorf("ModelId: got %q, want %q", got, "model-1")
	}
	if len(input.Messages) != 1 {
		t.Fatalf("messages: got %d, want 1", len(input.Messages))
	}
	content := input.Messages[0].Content
	if len(content) != 2 {
		t.Fatalf("content blocks: got %d, want 2", len(content))
	}

	text, ok := content[0].(*types.ContentBlockMemberText)
	if !ok {
		t.Fatalf("content[0]: got %T, want text block", content[0])
	}
	if text.Value != "Summarize this document." {
		t.Errorf("prompt: got %q, want %q", text.Value, "Summarize this document.")
	}

	doc, ok := content[1].(*types.ContentBlockMemberDocument)
	if !ok {
		t.Fatalf("content[1]: got %T, want document block", content[1])
	}
	if doc.Value.Format != types.DocumentFormatPdf {
		t.Errorf("format: got %q, want %q", doc.Value.Format, types.DocumentFormatPdf)
	}
	source, ok := doc.Value.Source.(*types.DocumentSourceMemberBytes)
	if !ok {
		t.Fatalf("source: got %T, want bytes", doc.Value.Source)
	}
	if string(source.Value) != "%PDF-1.4" {
		t.Errorf("document bytes: got %q, want %q", source.Value, "%PDF-1.4")
	}
}

func TestSummarize_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	mock := &mockConverseClient{}
	mock.converseFn = func(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
		if mock.callCount < 2 {
			return nil, errors.New("throttled")
		}
		return textOutput("eventually"), nil
	}
	s := NewWithClient(mock, "model-1", "prompt")

	summary, err := s.Summarize(context.Background(), "Summary", "txt", []byte("doc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "eventually" {
		t.Errorf("summary: got %q, want %q", summary, "eventually")
	}
	if mock.callCount != 2 {
		t.Errorf("call count: got %d, want 2", mock.callCount)
	}
}

func TestSummarize_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	mock := &mockConverseClient{
		converseFn: func(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return nil, errors.New("model unavailable")
		},
	}
	s := NewWithClient(mock, "model-1", "prompt")

	_, err := s.Summarize(context.Background(), "Summary", "txt", []byte("doc"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if mock.callCount != maxRetries+1 {
		t.Errorf("call count: got %d, want %d", mock.callCount, maxRetries+1)
	}
}

func TestSummarize_NoTextBlock(t *testing.T) {
	t.Parallel()

	mock := &mockConverseClient{
		converseFn: func(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return &bedrockruntime.ConverseOutput{
				Output: &types.ConverseOutputMemberMessage{
					Value: types.Message{Role: types.ConversationRoleAssistant},
				},
			}, nil
		},
	}
	s := NewWithClient(mock, "model-1", "prompt")

	if _, err := s.Summarize(context.Background(), "Summary", "txt", []byte("doc")); err == nil {
		t.Fatal("expected error for response without text block, got nil")
	}
}

func TestSummarize_CancelledContext(t *testing.T) {
	t.Parallel()

	mock := &mockConverseClient{
		converseFn: func(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	s := NewWithClient(mock, "model-1", "prompt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Summarize(ctx, "Summary", "txt", []byte("doc")); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
