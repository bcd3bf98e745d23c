// Package ai classifies requests with an OpenAI-compatible chat completion API.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-3.5-turbo"

	requestTimeout = 10 * time.Second
	maxTokens      = 300
	temperature    = 0.1
)

var (
	ErrEmptyCompletion = errors.New("completion has no choices")

	fencePrefix = regexp.MustCompile("^```(?:json)?\\s*")
	fenceSuffix = regexp.MustCompile("\\s*```$")
)

const promptTemplate = `Extract the intent and parameters from this user command: %q

Return a JSON object with these fields:
- "intent": one of [product_search, form_fill, comparison, local_discovery, navigation, unknown]
- "site" (optional): target website (e.g., "flipkart", "amazon", "zomato")
- "query" (optional): search query text
- "product_name" (optional): product/item name
- "location" (optional): location/area name (for local_discovery)
- "category" (optional): category type (e.g., "pizza", "restaurants")
- "filters" (object): max_price, min_price (numbers), rating_min (number), count (number), sort_by (string)
- "form_data" (object, for form_fill): field_name -> value, empty value when it should be generated
- "url" (optional): URL to navigate to
- "sites" (array, for comparison): site names to compare

Examples:
- "Find MacBook Air under 100000" -> {"intent": "product_search", "product_name": "MacBook Air", "filters": {"max_price": 100000}}
- "Fill signup form with temp email" -> {"intent": "form_fill", "form_data": {"email": ""}}
- "Top 3 pizza places near Indiranagar with 4+ rating" -> {"intent": "local_discovery", "category": "pizza", "location": "Indiranagar", "filters": {"rating_min": 4, "count": 3}}

Return ONLY valid JSON, no markdown or extra text.`

// Config for the completion endpoint
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient parses intents with an LLM and falls back to a local parser on any failure
type OpenAIClient struct {
	client   *openai.Client
	model    string
	fallback interfaces.IntentParser
	logger   *logrus.Logger
}

// NewOpenAIClient - creates new client. BaseURL may be given with or without the
// trailing /chat/completions path.
func NewOpenAIClient(cfg Config, fallback interfaces.IntentParser, logger *logrus.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback parser is required")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/chat/completions")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(oc),
		model:    model,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// ParseIntent - asks the model first; errors never reach the caller unless ctx is done
func (c *OpenAIClient) ParseIntent(ctx context.Context, text string) (entities.Intent, error) {
	in, err := c.complete(ctx, text)
	if err == nil {
		return in, nil
	}
	if ctx.Err() != nil {
		return entities.Intent{}, ctx.Err()
	}

	c.logger.WithError(err).Warn("LLM intent parsing failed, using rules")
	return c.fallback.ParseIntent(ctx, text)
}

func (c *OpenAIClient) complete(ctx context.Context, text string) (entities.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, text)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return entities.Intent{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return entities.Intent{}, ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	c.logger.WithField("content", content).Debug("LLM intent response")
	return decodeIntent(content)
}

// modelIntent accepts numbers the model may send as floats or strings
type modelIntent struct {
	Intent      string            `json:"intent"`
	Site        string            `json:"site"`
	Query       string            `json:"query"`
	ProductName string            `json:"product_name"`
	Location    string            `json:"location"`
	Category    string            `json:"category"`
	URL         string            `json:"url"`
	Sites       []string          `json:"sites"`
	FormData    map[string]string `json:"form_data"`
	Filters     struct {
		MaxPrice  json.Number `json:"max_price"`
		MinPrice  json.Number `json:"min_price"`
		RatingMin json.Number `json:"rating_min"`
		Count     json.Number `json:"count"`
		SortBy    string      `json:"sort_by"`
	} `json:"filters"`
}

// decodeIntent - strips markdown fences and maps the model's JSON onto an Intent
func decodeIntent(content string) (entities.Intent, error) {
	content = cleanContent(content)

	var m modelIntent
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return entities.Intent{}, fmt.Errorf("invalid intent JSON: %w", err)
	}

	in := entities.Intent{
		Kind:        knownKind(m.Intent),
		Site:        strings.ToLower(strings.TrimSpace(m.Site)),
		Query:       m.Query,
		ProductName: m.ProductName,
		Location:    m.Location,
		Category:    m.Category,
		URL:         m.URL,
		Sites:       m.Sites,
	}
	in.Filters.SortBy = m.Filters.SortBy
	if v, ok := number(m.Filters.MaxPrice); ok && v > 0 {
		p := int64(v)
		in.Filters.MaxPrice = &p
	}
	if v, ok := number(m.Filters.MinPrice); ok && v > 0 {
		p := int64(v)
		in.Filters.MinPrice = &p
	}
	if v, ok := number(m.Filters.RatingMin); ok && v > 0 {
		in.Filters.MinRating = &v
	}
	if v, ok := number(m.Filters.Count); ok && v > 0 {
		in.Filters.Count = int(v)
	}

	if len(m.FormData) > 0 {
		in.FormData = make(map[string]string, len(m.FormData))
		for k, v := range m.FormData {
			if v == "generate_temp" {
				v = ""
			}
			in.FormData[k] = v
		}
	}
	return in, nil
}

func cleanContent(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fencePrefix.ReplaceAllString(s, "")
		s = fenceSuffix.ReplaceAllString(s, "")
	}
	return s
}

func number(n json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	v, err := n.Float64()
	return v, err == nil
}

func knownKind(s string) entities.IntentKind {
	switch k := entities.IntentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case entities.IntentProductSearch, entities.IntentLocalDiscovery, entities.IntentFormFill,
		entities.IntentComparison, entities.IntentNavigation:
		return k
	default:
		return entities.IntentUnknown
	}
}

var _ interfaces.IntentParser = (*OpenAIClient)(nil)
