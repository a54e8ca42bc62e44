// Package queue consumes S3 event notifications from an SQS queue and
// dispatches them to a handler.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// defaultWaitTime is the long-poll duration in seconds.
const defaultWaitTime = 20

// defaultMaxMessages is the receive batch size.
const defaultMaxMessages = 10

// MessageAPI is the subset of the SQS client the consumer needs.
// Used for testing with mock implementations.
type MessageAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler processes the object references carried by one queue message.
// A nil return deletes the message; an error leaves it for redelivery.
type Handler func(ctx context.Context, refs []ObjectRef) error

// Consumer long-polls an SQS queue and dispatches each message to a Handler.
type Consumer struct {
	client      MessageAPI
	queueURL    string
	waitTime    int32
	maxMessages int32
}

// New creates a Consumer backed by a real SQS client.
func New(cfg aws.Config, queueURL string) *Consumer {
	return NewWithClient(sqs.NewFromConfig(cfg), queueURL)
}

// NewWithClient creates a Consumer with a custom client, used for testing.
func NewWithClient(client MessageAPI, queueURL string) *Consumer {
	return &Consumer{
		client:      client,
		queueURL:    queueURL,
		waitTime:    defaultWaitTime,
		maxMessages: defaultMaxMessages,
	}
}

// Run polls the queue until the context is cancelled. Messages whose handler
// returns nil are deleted; failed messages are logged and left on the queue
// for redelivery. Unparseable messages are deleted so they do not loop
// forever.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: c.maxMessages,
			WaitTimeSeconds:     c.waitTime,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to receive messages: %w", err)
		}

		for _, msg := range out.Messages {
			c.process(ctx, msg.Body, msg.ReceiptHandle, handle)
		}
	}
}

func (c *Consumer) process(ctx context.Context, body, receiptHandle *string, handle Handler) {
	if body == nil {
		c.delete(ctx, receiptHandle)
		return
	}

	refs, err := ParseEvent([]byte(*body))
	if err != nil {
		slog.Warn("dropping unparseable queue message", "error", err)
		c.delete(ctx, receiptHandle)
		return
	}

	if err := handle(ctx, refs); err != nil {
		slog.Error("handler failed, leaving message for redelivery", "error", err)
		return
	}
	c.delete(ctx, receiptHandle)
}

func (c *Consumer) delete(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		slog.Warn("failed to delete queue message", "error", err)
	}
}
