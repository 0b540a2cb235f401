package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Identity is the caller identity returned by the preflight check.
type Identity struct {
	Account string
	ARN     string
}

// ValidateCredentials calls sts:GetCallerIdentity to verify the
// configured AWS credentials work before any unit is touched.
func ValidateCredentials(ctx context.Context, client STSClient) (*Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("awscloud: GetCallerIdentity failed (are AWS credentials configured?): %w", err)
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
	}, nil
}
