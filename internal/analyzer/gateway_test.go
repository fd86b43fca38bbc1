package analyzer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// gatewayServer answers every tools/call with text wrapped in the MCP
// result envelope.
func gatewayServer(t *testing.T, text string, captured *[]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openrouter-gateway", r.URL.Path)
		assert.Equal(t, "Bearer proxy-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			*captured = body
		}
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":`+strconv.Quote(text)+`}]}}`)
	}))
}

func TestGatewayClient_Analyze(t *testing.T) {
	completion := `{"content":"Sure! Here is the result: {\"name\":\"Banana\",\"calories\":105,\"carbs\":27,\"fat\":0,\"protein\":1} Let me know if you need more.","model":"anthropic/claude-3.5-sonnet"}`

	var body []byte
	srv := gatewayServer(t, completion, &body)
	defer srv.Close()

	a, err := New(Config{APIKey: "proxy-key", Provider: ProviderGateway, BaseURL: srv.URL, Model: "anthropic/claude-3.5-sonnet"})
	require.NoError(t, err)

	record, err := a.Analyze(context.Background(), testJPEG(t))
	require.NoError(t, err)
	assert.Equal(t, "Banana", record.Name)
	assert.Equal(t, 27.0, record.Carbs)

	assert.Equal(t, "tools/call", gjson.GetBytes(body, "method").String())
	assert.Equal(t, "create_completion", gjson.GetBytes(body, "params.name").String())
	args := gjson.GetBytes(body, "params.arguments")
	assert.Equal(t, "anthropic/claude-3.5-sonnet", args.Get("model").String())
	assert.Contains(t, args.Get("system_prompt").String(), "exact format")
	assert.True(t, args.Get("temperature").Exists())
	assert.Equal(t, 0.0, args.Get("temperature").Float())
	assert.Equal(t, int64(gatewayMaxTokens), args.Get("max_tokens").Int())
	assert.Len(t, args.Get("messages").Array(), 1)
	assert.Equal(t, "user", args.Get("messages.0.role").String())
}

func TestGatewayClient_MaxTokens(t *testing.T) {
	var body []byte
	srv := gatewayServer(t, `{"content":"{\"name\":\"Egg\",\"calories\":78,\"carbs\":0,\"fat\":5,\"protein\":6}"}`, &body)
	defer srv.Close()

	a, err := New(Config{APIKey: "proxy-key", Provider: ProviderGateway, BaseURL: srv.URL, MaxTokens: 800})
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), testJPEG(t))
	require.NoError(t, err)
	assert.Equal(t, int64(800), gjson.GetBytes(body, "params.arguments.max_tokens").Int())
}

func TestGatewayClient_PlainText(t *testing.T) {
	srv := gatewayServer(t, `{"name":"Toast","calories":80,"carbs":14,"fat":1,"protein":3}`, nil)
	defer srv.Close()

	client := NewGatewayClient(srv.URL, "proxy-key", 0)
	text, err := client.Complete(context.Background(), &ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Toast","calories":80,"carbs":14,"fat":1,"protein":3}`, text)
}

func TestGatewayClient_Errors(t *testing.T) {
	tests := map[string]string{
		"rpc error":      `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"tool not found"}}`,
		"missing result": `{"jsonrpc":"2.0","id":1,"result":{}}`,
		"tool error":     `{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"upstream timeout"}]}}`,
		"not json":       `<html>bad gateway</html>`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, reply)
			}))
			defer srv.Close()

			client := NewGatewayClient(srv.URL, "proxy-key", 0)
			_, err := client.Complete(context.Background(), &ChatRequest{Model: "m"})
			assert.Error(t, err)
		})
	}
}

func TestCompletionContent(t *testing.T) {
	assert.Equal(t, "hello", completionContent(`{"content":"hello"}`))
	assert.Equal(t, "plain words", completionContent("plain words"))
	assert.Equal(t, `{"name":"Egg"}`, completionContent(`{"name":"Egg"}`))
	assert.Equal(t, "", completionContent(`{"content":42}`))
	assert.Equal(t, "", completionContent(`{"content":null,"model":"m"}`))
}

func TestGatewayClient_NullCompletionIsEmpty(t *testing.T) {
	srv := gatewayServer(t, `{"content":null,"model":"anthropic/claude-3.5-sonnet"}`, nil)
	defer srv.Close()

	a, err := New(Config{APIKey: "proxy-key", Provider: ProviderGateway, BaseURL: srv.URL})
	require.NoError(t, err)

	record, err := a.Analyze(context.Background(), testJPEG(t))
	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}
