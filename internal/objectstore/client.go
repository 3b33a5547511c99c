// Package objectstore copies provider results into durable bucket storage.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/dreamforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("object_store_not_configured")

const (
	defaultContentType = "image/png"
	maxSourceBytes     = 20 << 20
)

type Client struct {
	api        *resty.Client
	download   *resty.Client
	log        *zap.Logger
	baseURL    string
	bucket     string
	maxBytes   int64
	configured bool
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	st := cfg.Storage
	timeout := st.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(st.URL), "/")

	api := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(st.ServiceKey).
		SetHeader("apikey", st.ServiceKey)

	return &Client{
		api:        api,
		download:   resty.New().SetTimeout(timeout),
		log:        log.Named("objectstore"),
		baseURL:    baseURL,
		bucket:     strings.Trim(strings.TrimSpace(st.Bucket), "/"),
		maxBytes:   maxSourceBytes,
		configured: baseURL != "" && strings.TrimSpace(st.ServiceKey) != "" && strings.TrimSpace(st.Bucket) != "",
	}
}

func (c *Client) Configured() bool {
	return c.configured
}

// CopyFromURL downloads sourceURL and uploads it under key. The provider URL
// is never returned; only the bucket's public URL is.
func (c *Client) CopyFromURL(ctx context.Context, sourceURL, key string) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(sourceURL) == "" || strings.TrimSpace(key) == "" {
		return "", errors.New("objectstore: source url and key are required")
	}

	src, err := c.download.R().SetContext(ctx).SetDoNotParseResponse(true).Get(sourceURL)
	if err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	raw := src.RawBody()
	defer raw.Close()
	if src.IsError() {
		return "", fmt.Errorf("download source: status %d", src.StatusCode())
	}
	body, err := io.ReadAll(io.LimitReader(raw, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return "", fmt.Errorf("download source: larger than %d bytes", c.maxBytes)
	}
	if len(body) == 0 {
		return "", errors.New("download source: empty body")
	}
	contentType := src.Header().Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body).
		Post(c.objectPath(key))
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload object: status %d", resp.StatusCode())
	}

	c.log.Debug("object stored", zap.String("key", key), zap.Int("bytes", len(body)))
	return c.PublicURL(key), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if !c.configured {
		return ErrNotConfigured
	}
	resp, err := c.api.R().SetContext(ctx).Delete(c.objectPath(key))
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete object: status %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) PublicURL(key string) string {
	return c.baseURL + "/storage/v1/object/public/" + c.bucket + "/" + escapeKey(key)
}

func (c *Client) objectPath(key string) string {
	return "/storage/v1/object/" + c.bucket + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ObjectKey builds "<account>/<ulid>-<artist-slug>.png". The key is stored
// unescaped; escapeKey encodes it once when it goes on the wire.
func ObjectKey(accountID, artistName string) string {
	name := ulid.Make().String()
	if s := slug.Make(artistName); s != "" {
		name += "-" + s
	}
	return strings.ReplaceAll(accountID, "/", "_") + "/" + strings.ToLower(name) + ".png"
}

var Module = fx.Module("objectstore",
	fx.Provide(NewClient),
)
