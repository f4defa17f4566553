package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/exam-registration/internal/config"
	"github.com/exam-registration/internal/domain"
)

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier tells administrators about registrations that committed without a seat.
type Notifier struct {
	client   publisher
	topicARN string
}

func NewClient(awsCfg aws.Config, cfg *config.Config) *sns.Client {
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
}

func NewNotifier(client *sns.Client, topicARN string) *Notifier {
	return &Notifier{client: client, topicARN: topicARN}
}

func (n *Notifier) NotifyUnassigned(ctx context.Context, ev domain.UnassignedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal unassigned event: %w", err)
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Registration without exam seat"),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// LogNotifier is used when no topic is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyUnassigned(_ context.Context, ev domain.UnassignedEvent) error {
	slog.Warn("registration committed without a seat",
		"registration_id", ev.RegistrationID,
		"account_id", ev.AccountID,
		"preferred_date", ev.PreferredDate,
	)
	return nil
}
