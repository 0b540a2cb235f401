package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// FunctionService pushes code archives to Lambda.
type FunctionService struct {
	client LambdaClient
}

// NewFunctionService creates a FunctionService from an aws.Config.
func NewFunctionService(cfg aws.Config) *FunctionService {
	return &FunctionService{client: lambda.NewFromConfig(cfg)}
}

// NewFunctionServiceWithClient creates a FunctionService with an
// injected client, for tests.
func NewFunctionServiceWithClient(client LambdaClient) *FunctionService {
	return &FunctionService{client: client}
}

// UpdateFunctionCode uploads the archive bytes to the named function
// and publishes a new immutable version. The returned string is the
// published version number.
func (s *FunctionService) UpdateFunctionCode(ctx context.Context, functionName string, archive []byte) (string, error) {
	out, err := s.client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(functionName),
		ZipFile:      archive,
		Publish:      true,
	})
	if err != nil {
		return "", fmt.Errorf("awscloud: update function code for %s (create the function first if it does not exist): %w", functionName, err)
	}
	return aws.ToString(out.Version), nil
}
