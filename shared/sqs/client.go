package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Config holds SQS connection configuration
type Config struct {
	Region             string
	QueueURL           string
	DeadLetterQueueURL string
	Endpoint           string // optional override for local emulators
	AccessKeyID        string
	SecretAccessKey    string
	VisibilityTimeout  time.Duration
}

// missingSettings returns the names of required settings that are absent.
// The dead-letter queue URL is optional at construction time.
func (c *Config) missingSettings() []string {
	var missing []string
	if c.Region == "" {
		missing = append(missing, "queue.region")
	}
	if c.QueueURL == "" {
		missing = append(missing, "queue.url")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	return missing
}

// API is the subset of the SQS service client used by this package
type API interface {
	SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *awssqs.ChangeMessageVisibilityInput, optFns ...func(*awssqs.Options)) (*awssqs.ChangeMessageVisibilityOutput, error)
}

// Message is a claimed queue message. The receipt handle is only valid
// until the message is deleted or its visibility timeout expires.
type Message struct {
	MessageID     string
	Body          string
	ReceiptHandle string
	ReceiveCount  int
}

// Client represents an SQS queue client
type Client struct {
	api    API
	config *Config
	logger *slog.Logger
}

// NewClient creates a new SQS client. It fails with a MissingSettingError
// naming the first absent setting rather than falling back to defaults.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	if missing := config.missingSettings(); len(missing) > 0 {
		return nil, &MissingSettingError{Setting: missing[0]}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := awssqs.NewFromConfig(awsCfg, func(o *awssqs.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	logger.Info("SQS client initialized",
		slog.String("region", config.Region),
		slog.String("queue_url", config.QueueURL),
		slog.Bool("dead_letter_configured", config.DeadLetterQueueURL != ""),
	)

	return NewClientWithAPI(api, config, logger), nil
}

// NewClientWithAPI creates a client over an existing SQS API implementation
func NewClientWithAPI(api API, config *Config, logger *slog.Logger) *Client {
	return &Client{
		api:    api,
		config: config,
		logger: logger,
	}
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.config.QueueURL
}

// Send sends a message body to the queue and returns the message ID
func (c *Client) Send(ctx context.Context, body string) (string, error) {
	out, err := c.api.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(c.config.QueueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		err = classifyError(err)
		c.logger.Error("SQS send failed",
			slog.String("operation", "send"),
			slog.String("queue_url", c.config.QueueURL),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	c.logger.Debug("SQS message sent",
		slog.String("operation", "send"),
		slog.String("queue_url", c.config.QueueURL),
		slog.String("message_id", messageID),
		slog.Int("body_size", len(body)),
	)

	return messageID, nil
}

// Receive long-polls the queue for up to maxMessages messages.
// An empty result after the wait window is the normal idle condition.
func (c *Client) Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error) {
	out, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.config.QueueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(wait / time.Second),
		VisibilityTimeout:   int32(c.config.VisibilityTimeout / time.Second),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		err = classifyError(err)
		c.logger.Error("SQS receive failed",
			slog.String("operation", "receive"),
			slog.String("queue_url", c.config.QueueURL),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		receiveCount := 1
		if v, ok := m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				receiveCount = n
			}
		}

		messages = append(messages, Message{
			MessageID:     aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			ReceiveCount:  receiveCount,
		})
	}

	c.logger.Debug("SQS receive completed",
		slog.String("operation", "receive"),
		slog.String("queue_url", c.config.QueueURL),
		slog.Int("message_count", len(messages)),
	)

	return messages, nil
}

// Delete removes a claimed message from the queue. Deleting an already
// deleted or expired receipt handle is a no-op with a warning.
func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.config.QueueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		if isInvalidReceiptHandle(err) {
			c.logger.Warn("SQS delete with invalid receipt handle, treating as no-op",
				slog.String("operation", "delete"),
				slog.String("queue_url", c.config.QueueURL),
				slog.Any("error", err),
			)
			return nil
		}

		err = classifyError(err)
		c.logger.Error("SQS delete failed",
			slog.String("operation", "delete"),
			slog.String("queue_url", c.config.QueueURL),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to delete message: %w", err)
	}

	c.logger.Debug("SQS message deleted",
		slog.String("operation", "delete"),
		slog.String("queue_url", c.config.QueueURL),
	)

	return nil
}

// ExtendVisibility extends the visibility timeout of a claimed message
// so long-running processing does not trigger premature redelivery
func (c *Client) ExtendVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error {
	_, err := c.api.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(c.config.QueueURL),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: int32(timeout / time.Second),
	})
	if err != nil {
		err = classifyError(err)
		c.logger.Warn("SQS visibility extension failed",
			slog.String("operation", "change_visibility"),
			slog.String("queue_url", c.config.QueueURL),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to extend visibility: %w", err)
	}

	c.logger.Debug("SQS message visibility extended",
		slog.String("operation", "change_visibility"),
		slog.String("queue_url", c.config.QueueURL),
		slog.Duration("timeout", timeout),
	)

	return nil
}

// SendToDeadLetter routes a message body to the dead-letter queue with
// the failure reason attached as a message attribute
func (c *Client) SendToDeadLetter(ctx context.Context, body, reason string) error {
	if c.config.DeadLetterQueueURL == "" {
		return &MissingSettingError{Setting: "queue.dead_letter_url"}
	}

	_, err := c.api.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(c.config.DeadLetterQueueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"deadLetterReason": {
				DataType:    aws.String("String"),
				StringValue: aws.String(reason),
			},
		},
	})
	if err != nil {
		err = classifyError(err)
		c.logger.Error("SQS dead-letter send failed",
			slog.String("operation", "dead_letter"),
			slog.String("queue_url", c.config.DeadLetterQueueURL),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to send message to dead-letter queue: %w", err)
	}

	c.logger.Info("Message routed to dead-letter queue",
		slog.String("operation", "dead_letter"),
		slog.String("queue_url", c.config.DeadLetterQueueURL),
		slog.String("reason", reason),
	)

	return nil
}
