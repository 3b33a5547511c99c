// Package replicate runs hosted models through the Replicate predictions API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/dreamforge/internal/config"
	"github.com/smallbiznis/dreamforge/internal/generation/domain"
	"github.com/smallbiznis/dreamforge/internal/generation/prompt"
	"go.uber.org/zap"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

type Client struct {
	http         *resty.Client
	log          *zap.Logger
	pollInterval time.Duration
	configured   bool
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	gen := cfg.Generation
	poll := gen.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(gen.BaseURL, "/")).
		SetAuthToken(gen.APIToken).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:         httpClient,
		log:          log.Named("generation.replicate"),
		pollInterval: poll,
		configured:   strings.TrimSpace(gen.APIToken) != "",
	}
}

// Configured reports whether an API token is present.
func (c *Client) Configured() bool {
	return c.configured
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Run creates a prediction and waits for it to finish or for ctx to expire.
// The deadline of ctx bounds the whole call.
func (c *Client) Run(ctx context.Context, model string, input map[string]any) ([]byte, error) {
	if !c.configured {
		return nil, fmt.Errorf("%w: api token not configured", domain.ErrUpstreamProvider)
	}
	path, body, err := predictionRequest(model, input)
	if err != nil {
		return nil, err
	}

	var pred prediction
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "wait").
		SetBody(body).
		SetResult(&pred).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create prediction: %v", domain.ErrUpstreamProvider, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: create prediction: status %d", domain.ErrUpstreamProvider, resp.StatusCode())
	}

	for !terminal(pred.Status) {
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("%w: prediction %s has no poll url", domain.ErrUpstreamProvider, pred.ID)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamProvider, ctx.Err())
		case <-time.After(c.pollInterval):
		}

		pollURL := pred.URLs.Get
		pred = prediction{}
		resp, err = c.http.R().SetContext(ctx).SetResult(&pred).Get(pollURL)
		if err != nil {
			return nil, fmt.Errorf("%w: poll prediction: %v", domain.ErrUpstreamProvider, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%w: poll prediction: status %d", domain.ErrUpstreamProvider, resp.StatusCode())
		}
	}

	if pred.Status != statusSucceeded {
		c.log.Warn("prediction did not succeed",
			zap.String("prediction_id", pred.ID),
			zap.String("status", pred.Status),
			zap.ByteString("error", pred.Error),
		)
		return nil, fmt.Errorf("%w: prediction %s", domain.ErrUpstreamProvider, pred.Status)
	}
	return pred.Output, nil
}

func (c *Client) GenerateImage(ctx context.Context, model domain.ModelSpec, text string) (string, error) {
	out, err := c.Run(ctx, model.Identifier, prompt.ImageInput(model.Preset, text))
	if err != nil {
		return "", err
	}
	imageURL := ExtractImageURL(out)
	if imageURL == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrUpstreamProvider, domain.ErrNoOutput)
	}
	return imageURL, nil
}

func (c *Client) Interpret(ctx context.Context, model domain.ModelSpec, text string) (string, error) {
	out, err := c.Run(ctx, model.Identifier, prompt.InterpretationInput(model.Preset, text))
	if err != nil {
		return "", err
	}
	interpretation := ExtractText(out)
	if interpretation == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrUpstreamProvider, domain.ErrNoOutput)
	}
	return interpretation, nil
}

// predictionRequest targets the model endpoint, or the versioned predictions
// endpoint when the identifier pins "owner/name:version".
func predictionRequest(model string, input map[string]any) (string, map[string]any, error) {
	model = strings.TrimSpace(model)
	name, version, pinned := strings.Cut(model, ":")
	if !strings.Contains(name, "/") {
		return "", nil, fmt.Errorf("%w: invalid model identifier %q", domain.ErrUpstreamProvider, model)
	}
	if pinned {
		return "/predictions", map[string]any{"version": version, "input": input}, nil
	}
	return "/models/" + name + "/predictions", map[string]any{"input": input}, nil
}

func terminal(status string) bool {
	switch status {
	case statusSucceeded, statusFailed, statusCanceled:
		return true
	default:
		return false
	}
}

// ExtractImageURL accepts a URL string, an array whose first item is a URL or
// a {"url"} object, or a bare {"url"} object.
func ExtractImageURL(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			return s
		}
		return ""
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		var first string
		if err := json.Unmarshal(list[0], &first); err == nil {
			return first
		}
		return urlField(list[0])
	}
	return urlField(raw)
}

func urlField(raw []byte) string {
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj.URL
}

// ExtractText joins streamed token arrays; a plain string is returned as is.
func ExtractText(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.TrimSpace(strings.Join(parts, ""))
	}
	return ""
}
