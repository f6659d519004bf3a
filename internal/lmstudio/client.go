// Package lmstudio extracts structured offer data from email bodies
// through a local LM Studio chat-completions endpoint.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhle/mail-reconciler/internal/config"
	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/retry"
	"github.com/nhle/mail-reconciler/internal/stats"
)

// The extraction prompt and price heuristics are tuned against exactly
// this server and model pair; anything else is refused at startup.
const (
	supportedVersion = "0.3.16"
	supportedModel   = "qwen3-8b"
)

// Client talks to a local LM Studio chat-completions endpoint.
type Client struct {
	url         string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	retry       retry.Policy
	log         zerolog.Logger
	stats       *stats.Collector
}

// New validates the pinned server version and model and builds the
// client.
func New(cfg config.LMStudioConfig, log zerolog.Logger, st *stats.Collector) (*Client, error) {
	if cfg.Version != supportedVersion {
		return nil, fmt.Errorf("unsupported LM Studio version %q, required %s", cfg.Version, supportedVersion)
	}
	if cfg.Model != supportedModel {
		return nil, fmt.Errorf("unsupported model %q, required %s", cfg.Model, supportedModel)
	}
	return &Client{
		url:         cfg.BaseURL() + "/v1/chat/completions",
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		log:         log.With().Str("component", "lm_studio").Logger(),
		stats:       st,
	}, nil
}

// AnalyzeEmail runs one extraction over a message body. The result
// always carries the required fields; failures come back as a result
// with Err set and blank fields rather than an error, so one bad
// message never aborts a run. Prices stated in the body's stacked
// label format are read directly and override the model's output.
func (c *Client) AnalyzeEmail(ctx context.Context, body string, threadCtx map[string]string) model.AnalysisResult {
	c.stats.AddExtractionCall()

	priceUSD, priceCasino := extractPrices(body)

	content, err := c.requestContent(ctx, buildPrompt(body, threadCtx))
	if err != nil {
		return c.failResult(fmt.Errorf("failed to analyze email: %w", err))
	}

	fields, err := parseAnalysis(content)
	if err != nil {
		c.stats.AddError(stats.CategoryLMStudio)
		c.log.Error().Err(err).Msg("unusable extraction response")
		return c.failResult(fmt.Errorf("failed to analyze email: %w", err))
	}

	if priceUSD != "" {
		fields[model.FieldPriceUSD] = priceUSD
	}
	if priceCasino != "" {
		fields[model.FieldPriceUSDCasino] = priceCasino
	}

	return model.AnalysisResult{Fields: fields}
}

func (c *Client) failResult(err error) model.AnalysisResult {
	c.stats.AddError(stats.CategoryLMStudio)
	c.log.Error().Err(err).Msg("email analysis failed")
	return model.EmptyAnalysisResult(err.Error())
}

// requestContent posts the prompt and returns the first choice's
// content. Transport and server failures are retried; every failed
// attempt is counted.
func (c *Client) requestContent(ctx context.Context, prompt string) (string, error) {
	return retry.Do(c.retry, func() (string, error) {
		content, err := c.postOnce(ctx, prompt)
		if err != nil {
			c.stats.AddError(stats.CategoryLMStudio)
			c.log.Warn().Err(err).Msg("extraction request failed")
			return "", err
		}
		return content, nil
	})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) postOnce(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling LM Studio: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LM Studio returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty response from API")
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseAnalysis pulls the JSON object out of the model's reply, which
// tends to wrap it in prose, coerces values to strings, sanitizes the
// price fields to digits, and backfills missing required fields.
func parseAnalysis(content string) (map[string]string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end < start {
		return nil, errors.New("no JSON found in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = stringify(v)
	}

	if v, ok := fields[model.FieldPriceUSD]; ok {
		fields[model.FieldPriceUSD] = digitsOnly(v)
	}
	if v, ok := fields[model.FieldPriceUSDCasino]; ok {
		fields[model.FieldPriceUSDCasino] = digitsOnly(v)
	}

	for _, f := range model.RequiredAnalysisFields {
		if _, ok := fields[f]; !ok {
			fields[f] = ""
		}
	}
	return fields, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
