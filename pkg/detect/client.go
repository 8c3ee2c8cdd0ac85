package detect

import (
	"context"
	"defectlens/pkg/artifact"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel       = "gemini-2.0-flash"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
	DefaultCacheSize   = 64
)

// Config is passed in explicitly; the package never reads the environment.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Temperature 0 means the default.
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	// CacheSize is the number of results kept by image hash; negative disables.
	CacheSize int `yaml:"cache_size"`
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	return c
}

// Client analyzes images. Safe for concurrent use.
type Client struct {
	api   openai.Client
	cfg   Config
	cache *lru.Cache[string, *Result]
}

func New(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	}
	c := &Client{api: openai.NewClient(opts...), cfg: cfg}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *Result](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Analyze sends img to the model and returns its verdict. Identical images
// are answered from the cache.
func (c *Client) Analyze(ctx context.Context, img *artifact.Image) (*Result, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "detect").Str("model", c.cfg.Model).Logger()

	key := img.SHA256()
	if c.cache != nil {
		if r, ok := c.cache.Get(key); ok {
			log.Debug().Str("sha256", key).Msg("Detection cache hit")
			return r, nil
		}
	}

	req := openai.ChatCompletionNewParams{
		Model:               c.cfg.Model,
		Messages:            []openai.ChatCompletionMessageParamUnion{buildImageMessage(inspectionPrompt, img.DataURI())},
		Temperature:         openai.Float(c.cfg.Temperature),
		MaxCompletionTokens: openai.Int(c.cfg.MaxTokens),
	}
	resp, err := c.api.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrUnparsable)
	}

	content := resp.Choices[0].Message.Content
	log.Debug().Int("chars", len(content)).Msg("Model replied")
	r, err := ParseResult(content)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(key, r)
	}
	return r, nil
}

func buildImageMessage(prompt, imageURL string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
					{OfText: &openai.ChatCompletionContentPartTextParam{Text: prompt}},
					{OfImageURL: &openai.ChatCompletionContentPartImageParam{
						ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "auto",
						},
					}},
				},
			},
		},
	}
}
