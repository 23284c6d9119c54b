package lambdatransport_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/effective-security/mailagent/mcp/transport"
	"github.com/effective-security/mailagent/mcp/transport/lambdatransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	lastInput *lambda.InvokeInput
	output    *lambda.InvokeOutput
	err       error
}

func (f *fakeInvoker) Invoke(_ context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func TestCall(t *testing.T) {
	t.Parallel()

	payload, _ := json.Marshal(transport.Response{
		JSONRPC: "2.0",
		ID:      1,
		Result:  json.RawMessage(`{"tools":[{"name":"classify_email"}]}`),
	})
	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{Payload: payload},
	}

	tr := lambdatransport.NewWithClient("mcp-email-tools", invoker)
	assert.Equal(t, "lambda:mcp-email-tools", tr.Endpoint())

	raw, err := tr.Call(context.Background(), "tools/list", struct{}{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "classify_email")

	require.NotNil(t, invoker.lastInput)
	assert.Equal(t, "mcp-email-tools", aws.ToString(invoker.lastInput.FunctionName))

	var req transport.Request
	require.NoError(t, json.Unmarshal(invoker.lastInput.Payload, &req))
	assert.Equal(t, "tools/list", req.Method)
	assert.Equal(t, "2.0", req.JSONRPC)
}

func TestCallFunctionError(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{
			FunctionError: aws.String("Unhandled"),
			Payload:       []byte(`{"errorMessage":"timeout"}`),
		},
	}

	tr := lambdatransport.NewWithClient("mcp-email-tools", invoker)
	_, err := tr.Call(context.Background(), "tools/call", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unhandled")
	assert.Contains(t, err.Error(), "timeout")
}

func TestCallRemoteError(t *testing.T) {
	t.Parallel()

	payload, _ := json.Marshal(transport.Response{
		JSONRPC: "2.0",
		ID:      1,
		Error: &transport.Error{
			Code:    transport.CodeInternalError,
			Message: "tool crashed",
		},
	})
	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{Payload: payload},
	}

	tr := lambdatransport.NewWithClient("mcp-email-tools", invoker)
	_, err := tr.Call(context.Background(), "tools/call", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool crashed")
}
