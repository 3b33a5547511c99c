// Package checkout opens hosted Lemon Squeezy checkouts that carry the buyer's
// account id back through the purchase webhook.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/dreamforge/internal/config"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jsonAPI = "application/vnd.api+json"

type Request struct {
	AccountID string
	Email     string
	VariantID string
}

type Client struct {
	http    *resty.Client
	log     *zap.Logger
	storeID string
	apiKey  string
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	co := cfg.Checkout
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(co.BaseURL, "/")).
		SetAuthToken(co.APIKey).
		SetTimeout(co.Timeout).
		SetHeader("Accept", jsonAPI).
		SetHeader("Content-Type", jsonAPI)

	return &Client{
		http:    httpClient,
		log:     log.Named("payment.checkout"),
		storeID: strings.TrimSpace(co.StoreID),
		apiKey:  strings.TrimSpace(co.APIKey),
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.storeID != ""
}

type resource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relation struct {
	Data resource `json:"data"`
}

type checkoutBody struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Email  string            `json:"email,omitempty"`
				Custom map[string]string `json:"custom"`
			} `json:"checkout_data"`
		} `json:"attributes"`
		Relationships struct {
			Store   relation `json:"store"`
			Variant relation `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// Create returns the hosted checkout URL for the variant.
func (c *Client) Create(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", paymentdomain.ErrCheckoutNotConfigured
	}
	variantID := strings.TrimSpace(req.VariantID)
	if !isNumeric(variantID) {
		return "", paymentdomain.ErrInvalidVariant
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return "", paymentdomain.ErrInvalidEvent
	}

	var body checkoutBody
	body.Data.Type = "checkouts"
	body.Data.Attributes.CheckoutData.Email = strings.TrimSpace(req.Email)
	body.Data.Attributes.CheckoutData.Custom = map[string]string{"user_id": accountID}
	body.Data.Relationships.Store = relation{Data: resource{Type: "stores", ID: c.storeID}}
	body.Data.Relationships.Variant = relation{Data: resource{Type: "variants", ID: variantID}}

	var out checkoutResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/checkouts")
	if err != nil {
		c.log.Warn("checkout request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", paymentdomain.ErrUpstreamProvider, err)
	}
	if resp.IsError() {
		c.log.Warn("checkout rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("variant_id", variantID),
			zap.ByteString("body", resp.Body()),
		)
		if resp.StatusCode() == 404 || resp.StatusCode() == 422 {
			return "", paymentdomain.ErrInvalidVariant
		}
		return "", fmt.Errorf("%w: status %d", paymentdomain.ErrUpstreamProvider, resp.StatusCode())
	}
	if out.Data.Attributes.URL == "" {
		return "", fmt.Errorf("%w: checkout without url", paymentdomain.ErrUpstreamProvider)
	}
	return out.Data.Attributes.URL, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var Module = fx.Module("payment.checkout",
	fx.Provide(NewClient),
)
