// Package gemini implements the generation backend on Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/explain"
)

// SearchToolName is the tool this backend offers for search augmentation.
const SearchToolName = "web_search"

// Client generates explanations. It satisfies explain.Generator.
type Client interface {
	Generate(ctx context.Context, req explain.GenerationRequest) (string, error)
	// AvailableTools lists the tool names this backend can enable.
	AvailableTools() []string
}

// contentGenerator is the part of the SDK the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkClient struct {
	models           contentGenerator
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
	timeout          time.Duration
}

var prefixPattern = regexp.MustCompile(`(?m)^(?:\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] UID \d+: )+`)

// NewClient creates a new Gemini client with the provided configuration.
// botName is woven into the system instruction header.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	botName string,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return newSDKClient(gi.Models, cfg, botName, logger), nil
}

func newSDKClient(models contentGenerator, cfg config.GeminiConfig, botName string, log *slog.Logger) *sdkClient {
	return &sdkClient{
		models:           models,
		log:              log,
		contentConfig:    baseContentConfig(cfg, botName),
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		timeout:          cfg.Timeout,
	}
}

func baseContentConfig(cfg config.GeminiConfig, botName string) *genai.GenerateContentConfig {
	temperature := cfg.Temperature
	base := &genai.GenerateContentConfig{
		Temperature: &temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	instruction := fmt.Sprintf(SystemInstructionHeader, botName) + cfg.SystemInstruction
	base.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	return base
}

// requestConfig copies the base config and enables search grounding when the
// request asks for it.
func (c *sdkClient) requestConfig(searchTool string) *genai.GenerateContentConfig {
	copyCfg := *c.contentConfig
	copyCfg.Tools = nil
	if searchTool != "" {
		copyCfg.Tools = append(copyCfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	return &copyCfg
}

// AvailableTools implements the host tool listing.
func (c *sdkClient) AvailableTools() []string {
	return []string{SearchToolName}
}

// Generate sends the composed prompt as a single user turn.
func (c *sdkClient) Generate(ctx context.Context, req explain.GenerationRequest) (string, error) {
	log := c.log.With("request_id", req.RequestID)
	log.DebugContext(ctx, "Generating explanation", "prompt_length", len(req.Prompt), "search_tool", req.SearchTool)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  genai.RoleUser,
	}}
	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.requestConfig(req.SearchTool))
	if err != nil {
		log.ErrorContext(ctx, "Gemini explanation generation failed", "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp)
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		code := 0
		if errors.As(err, &genAiAPIError) {
			code = genAiAPIError.Code
		}

		if code == 500 || code == 503 {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", code)
				select {
				case <-time.After(c.retryDelay):
					continue
				case <-ctx.Done():
					return nil, fmt.Errorf("gemini retry aborted: %w", ctx.Err())
				}
			}
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("gemini returned no response")
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("generation blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("generation returned no content, finish reason: %s", finishReason)
		}
		return "", fmt.Errorf("generation returned empty content")
	}

	rawText := resp.Text()
	cleanText := stripMessagePrefixes(rawText)
	if cleanText == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty after stripping prefixes", "raw_text", rawText)
		return "", fmt.Errorf("generation returned empty text after processing")
	}

	return cleanText, nil
}

// stripMessagePrefixes removes chat-log prefixes the model sometimes echoes.
func stripMessagePrefixes(s string) string {
	return prefixPattern.ReplaceAllString(s, "")
}
