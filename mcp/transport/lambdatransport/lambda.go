// Package lambdatransport implements the MCP transport over AWS Lambda
// invocation, for tool servers deployed as Lambda-wrapped MCP handlers.
package lambdatransport

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent/mcp/transport", "lambdatransport")

// Invoker is the subset of the Lambda API the transport uses.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Transport invokes a Lambda function with one JSON-RPC frame per call.
type Transport struct {
	functionName string
	client       Invoker
	counter      atomic.Uint64
}

// New returns a transport for the named Lambda function using the
// default AWS configuration.
func New(ctx context.Context, functionName string) (*Transport, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load AWS config")
	}
	return NewWithClient(functionName, lambda.NewFromConfig(cfg)), nil
}

// NewWithClient returns a transport using the provided Lambda client.
func NewWithClient(functionName string, client Invoker) *Transport {
	return &Transport{
		functionName: functionName,
		client:       client,
	}
}

// Endpoint implements transport.Transport.
func (t *Transport) Endpoint() string {
	return "lambda:" + t.functionName
}

// Call implements transport.Transport.
func (t *Transport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.counter.Add(1)
	payload, err := json.Marshal(transport.NewRequest(id, method, params))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode request")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"function", t.functionName,
		"method", method,
		"id", id,
	)

	out, err := t.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(t.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to invoke: %s", t.functionName)
	}
	if out.FunctionError != nil {
		return nil, errors.Newf("function error from %s: %s: %s",
			t.functionName, aws.ToString(out.FunctionError), string(out.Payload))
	}

	return transport.DecodeResponse(out.Payload)
}
