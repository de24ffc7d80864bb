package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

const (
	// AnthropicVersion is the messages API version accepted by Bedrock.
	AnthropicVersion = "bedrock-2023-05-31"

	contentTypeJSON = "application/json"
)

// InvokeModelAPI is the subset of the Bedrock runtime client used by Client.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes an Anthropic model through Amazon Bedrock.
// Implements port.ModelClient.
type Client struct {
	api     InvokeModelAPI
	modelID string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type invokeResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// NewClient creates a Bedrock model client.
func NewClient(api InvokeModelAPI, modelID string) (*Client, error) {
	if modelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	return &Client{api: api, modelID: modelID}, nil
}

// NewClientFromConfig creates a client on top of a shared AWS config.
func NewClientFromConfig(awsCfg aws.Config, modelID string) (*Client, error) {
	return NewClient(bedrockruntime.NewFromConfig(awsCfg), modelID)
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string {
	return c.modelID
}

// Complete sends a single user message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = port.DefaultMaxTokens
	}

	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: AnthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke model %s: %w", c.modelID, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("model response has no text content (stop_reason=%s)", resp.StopReason)
	}

	return text.String(), nil
}
