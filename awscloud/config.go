package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Config selects the region and credential source for AWS calls.
// With empty key fields the SDK's default credential chain is used
// (environment, shared config, instance role).
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// AWSConfig builds an aws.Config for the configured region and
// credentials.
func (c Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	if c.Region == "" {
		return aws.Config{}, fmt.Errorf("awscloud: region is required")
	}
	if c.AccessKeyID != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(c.Region),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
			),
		)
	}
	return config.LoadDefaultConfig(ctx, config.WithRegion(c.Region))
}
