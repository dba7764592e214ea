package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"adventure-server/image-generator/internal/config"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxImageBytes caps the download of a generated image.
const maxImageBytes = 20 << 20

// ImageGenerator turns a prompt into encoded image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, size string) ([]byte, error)
}

type openAIGenerator struct {
	client      *openai.Client
	httpClient  *http.Client
	model       string
	defaultSize string
	logger      *zap.Logger
}

// NewOpenAIGenerator calls the OpenAI images API and downloads the returned URL.
func NewOpenAIGenerator(cfg config.OpenAIConfig, logger *zap.Logger) (ImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = time.Minute
	}
	return &openAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		httpClient:  &http.Client{Timeout: fetchTimeout},
		model:       cfg.Model,
		defaultSize: cfg.Size,
		logger:      logger.Named("OpenAIGenerator"),
	}, nil
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt, size string) ([]byte, error) {
	if size == "" {
		size = g.defaultSize
	}
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("images api request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("images api returned no data")
	}

	item := resp.Data[0]
	if item.B64JSON != "" {
		return base64.StdEncoding.DecodeString(item.B64JSON)
	}
	if item.URL == "" {
		return nil, errors.New("images api returned neither url nor b64_json")
	}
	g.logger.Debug("Fetching generated image", zap.String("revised_prompt", item.RevisedPrompt))
	return g.fetch(ctx, item.URL)
}

func (g *openAIGenerator) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}
