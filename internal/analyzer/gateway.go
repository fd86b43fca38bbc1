// internal/analyzer/gateway.go
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/tidwall/gjson"
)

const (
	DefaultGatewayURL = "http://mcp-compose-http-proxy:9876"

	gatewayTool      = "create_completion"
	gatewayMaxTokens = 2000
)

// GatewayClient calls the OpenRouter gateway tool behind an MCP proxy. The
// gateway has no structured output mode, so replies are free text and the
// analyzer relies on brace extraction to find the JSON.
type GatewayClient struct {
	httpClient *http.Client
	proxyURL   string
	apiKey     string
}

func NewGatewayClient(proxyURL, apiKey string, timeout time.Duration) *GatewayClient {
	if proxyURL == "" {
		proxyURL = DefaultGatewayURL
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &GatewayClient{
		httpClient: &http.Client{Timeout: timeout},
		proxyURL:   strings.TrimRight(proxyURL, "/"),
		apiKey:     apiKey,
	}
}

// Complete forwards the request as a create_completion tool call. System
// messages travel in system_prompt; the rest go in messages.
func (g *GatewayClient) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	var system string
	messages := []map[string]interface{}{}
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = m.text()
			continue
		}
		messages = append(messages, map[string]interface{}{
			"role":    string(m.Role),
			"content": toWireContent(m),
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = gatewayMaxTokens
	}

	completionRequest := map[string]interface{}{
		"model":         req.Model,
		"system_prompt": system,
		"messages":      messages,
		"max_tokens":    maxTokens,
		"temperature":   req.Temperature,
	}

	text, err := g.callGateway(ctx, gatewayTool, completionRequest)
	if err != nil {
		return "", fmt.Errorf("failed to get AI completion: %w", err)
	}
	return completionContent(text), nil
}

func (g *GatewayClient) callGateway(ctx context.Context, toolName string, args map[string]interface{}) (string, error) {
	url := fmt.Sprintf("%s/openrouter-gateway", g.proxyURL)

	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": protocol.CallToolRequest{
			Name:      toolName,
			Arguments: args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("failed to decode response")
	}
	if rpcErr := gjson.GetBytes(body, "error"); rpcErr.Exists() {
		return "", fmt.Errorf("gateway error %d: %s", rpcErr.Get("code").Int(), rpcErr.Get("message").String())
	}

	text := gjson.GetBytes(body, "result.content.0.text")
	if text.Type != gjson.String {
		return "", fmt.Errorf("unexpected response format")
	}
	if gjson.GetBytes(body, "result.isError").Bool() {
		return "", fmt.Errorf("gateway tool error: %s", text.String())
	}
	return text.String(), nil
}

// completionContent unwraps the gateway's completion object when the tool
// text is one; otherwise the text is already the model output. A completion
// whose content is null or not a string carries no reply.
func completionContent(text string) string {
	if gjson.Valid(text) {
		if content := gjson.Get(text, "content"); content.Exists() {
			if content.Type != gjson.String {
				return ""
			}
			return content.String()
		}
	}
	return text
}
