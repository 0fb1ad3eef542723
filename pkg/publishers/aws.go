package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves the SDK config for an AWS sink.
func loadAWSConfig(ctx context.Context, c AWSConfig) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(c.Region)}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// fifoTarget reports whether a queue URL or topic ARN names a FIFO resource.
// FIFO targets need a group id and a deduplication id on every message.
func fifoTarget(target string) bool {
	return strings.HasSuffix(target, ".fifo")
}

// numericAttributes lists the Attributes keys typed as Number on SQS and SNS.
var numericAttributes = map[string]bool{"status_code": true}

func attributeType(key string) *string {
	if numericAttributes[key] {
		return aws.String("Number")
	}
	return aws.String("String")
}
