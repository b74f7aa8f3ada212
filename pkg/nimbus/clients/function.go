package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// LambdaAPI is the part of the Lambda client BasicFunctionClient uses
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// FunctionError is returned when an invoked function fails
type FunctionError struct {
	Function string
	Message  string
	Err      error
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s failed: %s", e.Function, e.Message)
}

func (e *FunctionError) Unwrap() error {
	return e.Err
}

type lambdaFunction struct {
	api      LambdaAPI
	function string
}

// deployedName derives the Lambda name from the project and stage the caller was deployed with
func (f *lambdaFunction) deployedName() (string, error) {
	project, stage := os.Getenv(nimbus.EnvProjectName), os.Getenv(nimbus.EnvFunctionStage)
	if project == "" || stage == "" {
		return "", fmt.Errorf("%w: %s and %s must be set, is the function missing uses_basic_function %s?",
			ErrNotConfigured, nimbus.EnvProjectName, nimbus.EnvFunctionStage, f.function)
	}
	return nimbus.FunctionName(project, stage, f.function), nil
}

func (f *lambdaFunction) Invoke(ctx context.Context, payload interface{}, out interface{}) error {
	result, err := f.invoke(ctx, payload, lambdatypes.InvocationTypeRequestResponse)
	if err != nil {
		return err
	}
	if out == nil || len(result.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Payload, out); err != nil {
		return fmt.Errorf("failed to decode result of %s: %w", f.function, err)
	}
	return nil
}

func (f *lambdaFunction) InvokeAsync(ctx context.Context, payload interface{}) error {
	_, err := f.invoke(ctx, payload, lambdatypes.InvocationTypeEvent)
	return err
}

func (f *lambdaFunction) invoke(ctx context.Context, payload interface{}, invocation lambdatypes.InvocationType) (*lambda.InvokeOutput, error) {
	name, err := f.deployedName()
	if err != nil {
		return nil, err
	}
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload for %s: %w", f.function, err)
	}

	out, err := f.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(name),
		InvocationType: invocation,
		Payload:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", f.function, err)
	}
	if out.FunctionError != nil {
		return nil, &FunctionError{Function: f.function, Message: string(out.Payload)}
	}
	return out, nil
}

type localFunction struct {
	deployment *local.Deployment
	function   string
}

func (f *localFunction) Invoke(ctx context.Context, payload interface{}, out interface{}) error {
	body, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s: %w", f.function, err)
	}
	result, err := f.deployment.Invoke(ctx, f.function, body)
	if err != nil {
		return &FunctionError{Function: f.function, Message: err.Error(), Err: err}
	}
	if out == nil {
		return nil
	}
	// round trip through JSON so results decode as they would from Lambda
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result of %s: %w", f.function, err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("failed to decode result of %s: %w", f.function, err)
	}
	return nil
}

func (f *localFunction) InvokeAsync(_ context.Context, payload interface{}) error {
	body, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s: %w", f.function, err)
	}
	return f.deployment.InvokeAsync(f.function, body)
}
