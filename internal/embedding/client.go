package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps an OpenAI-compatible embeddings client. The base URL selects
// the actual provider; the reference deployment points it at Jina.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates an embeddings client for the given provider endpoint.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key not set")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("embedding base URL not set")
	}

	// Provider errors surface to the caller; the SDK's automatic retries
	// are disabled so failure semantics stay explicit.
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	return &Client{client: &client, model: model}, nil
}
