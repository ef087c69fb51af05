package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// queueSender delivers an encoded event to one provider.
type queueSender interface {
	Send(ctx context.Context, payload []byte, attrs map[string]string) (string, error)
	Close() error
}

// queuePublisher encodes events and hands them to a provider sender.
type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
	log      Logger
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}

	var (
		sender queueSender
		err    error
	)
	switch cfg.Queue.Provider {
	case QueueProviderAWSSQS:
		sender, err = newAWSSQSSender(ctx, cfg.Queue.SQS)
	case QueueProviderAWSSNS:
		sender, err = newAWSSNSSender(ctx, cfg.Queue.SNS)
	case QueueProviderGCP:
		sender, err = newGCPPubSubSender(ctx, cfg.Queue.GCP)
	default:
		err = fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &queuePublisher{
		id:       cfg.ID,
		provider: cfg.Queue.Provider,
		sender:   sender,
		log:      ensureLogger(log),
	}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }

// Close releases the provider client.
func (p *queuePublisher) Close() error { return p.sender.Close() }

// Publish encodes the event as JSON and forwards it to the provider. Queue messages
// are size capped, so records are left out and consumers read the report at ReportPath.
func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	evt.Records = nil
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msgID, err := p.sender.Send(ctx, payload, evt.attributes())
	if err != nil {
		return fmt.Errorf("queue provider %s send failed: %w", p.provider, err)
	}

	p.log.DebugObj("queue publisher delivered event", "publisher_queue_delivery", map[string]any{
		"publisher_id": p.id,
		"provider":     p.provider,
		"message_id":   msgID,
	})
	return nil
}

// loadAWSConfig builds an AWS config with static credentials.
func loadAWSConfig(ctx context.Context, cfg *AWSQueueConfig) (aws.Config, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	awsCfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(creds),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}
