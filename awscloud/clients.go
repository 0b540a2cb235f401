// Package awscloud holds the AWS surface of the deployer: credential
// and region configuration, the identity preflight, and the Lambda
// update-function-code call.
package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// LambdaClient defines the Lambda operations used by the deployer.
type LambdaClient interface {
	UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
}

// STSClient defines the STS operations used for the identity preflight.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}
