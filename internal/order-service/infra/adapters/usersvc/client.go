// Package usersvc talks to the user service that owns shopping carts.
package usersvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

var _ ports.CartClearer = (*Client)(nil)

// TokenHeader carries the caller's credential, as the user service expects.
const TokenHeader = "token"

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type updateRequest struct {
	CartData map[string]int `json:"cartData"`
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// ClearCart replaces the user's cart with an empty one.
func (c *Client) ClearCart(ctx context.Context, userID, token string) error {
	body, err := json.Marshal(updateRequest{CartData: map[string]int{}})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/update/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("usersvc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	if id := constants.RequestID(ctx); id != "" {
		req.Header.Set(constants.HeaderXRequestId, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("usersvc: clear cart for %s: %w", userID, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("usersvc: clear cart for %s: status %d", userID, resp.StatusCode)
	}
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Success != nil && !*env.Success {
		return fmt.Errorf("usersvc: clear cart for %s: %s", userID, env.Message)
	}
	return nil
}
