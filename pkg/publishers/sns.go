package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// topicPublisher sends account events to an SNS topic. The subject carries the
// status so email and SMS subscribers see it without decoding the body.
type topicPublisher struct {
	id       string
	topicARN string
	fifo     bool
	client   snsClient
	log      Logger
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.AWS)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.SNS.AWS.Endpoint
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &topicPublisher{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		fifo:     fifoTarget(cfg.SNS.TopicARN),
		client:   client,
		log:      ensureLogger(log),
	}, nil
}

func (t *topicPublisher) ID() string   { return t.id }
func (t *topicPublisher) Type() string { return TypeSNS }

func (t *topicPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attrs := make(map[string]types.MessageAttributeValue)
	for k, v := range evt.Attributes() {
		attrs[k] = types.MessageAttributeValue{DataType: attributeType(k), StringValue: aws.String(v)}
	}
	input := &sns.PublishInput{
		TopicArn:          aws.String(t.topicARN),
		Subject:           aws.String(subject(evt)),
		Message:           aws.String(string(payload)),
		MessageAttributes: attrs,
	}
	if t.fifo {
		input.MessageGroupId = aws.String(evt.GroupKey())
		input.MessageDeduplicationId = aws.String(evt.Key())
	}

	out, err := t.client.Publish(ctx, input)
	if err != nil {
		t.log.ErrorObj("sns publish failed", "publisher_sns_error", map[string]any{
			"publisher_id": t.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	t.log.DebugObj("sns delivered account event", "publisher_sns_delivery", map[string]any{
		"publisher_id": t.id,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

func subject(evt Event) string {
	if evt.StatusChanged {
		return fmt.Sprintf("Account status changed %d -> %d", evt.PreviousStatusCode, evt.StatusCode)
	}
	return fmt.Sprintf("Account status %d", evt.StatusCode)
}
