// Package kms wraps the external key-management HTTP API that holds
// per-user encryption keys and CTR nonces.
package kms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vocalis/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// Client talks to the key-management service.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the KMS client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient constructs a KMS client for the given base URL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type storeKeyRequest struct {
	Key    string `json:"key"`
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type storeNonceRequest struct {
	Nonce   string `json:"nonce"`
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
}

type storeResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type keyResponse struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
	Error string `json:"error"`
}

// StoreKey parks an AES key with the service and returns its identifier.
func (c *Client) StoreKey(ctx context.Context, userID string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", services.Wrap(services.ErrValidation, "kms", "store key", "empty key", nil)
	}
	body := storeKeyRequest{
		Key:    base64.StdEncoding.EncodeToString(key),
		Type:   "AES_KEY",
		UserID: userID,
	}
	var resp storeResponse
	if err := c.post(ctx, "/keys", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", services.Wrap(services.ErrUpstream, "kms", "store key", resp.Error, nil)
	}
	if resp.ID == "" {
		return "", services.Wrap(services.ErrUpstream, "kms", "store key", "missing key id in response", nil)
	}
	return resp.ID, nil
}

// StoreNonce parks a CTR nonce with the service and returns its identifier.
func (c *Client) StoreNonce(ctx context.Context, userID string, nonce []byte) (string, error) {
	if len(nonce) == 0 {
		return "", services.Wrap(services.ErrValidation, "kms", "store nonce", "empty nonce", nil)
	}
	body := storeNonceRequest{
		Nonce:   base64.StdEncoding.EncodeToString(nonce),
		UserID:  userID,
		Purpose: "AES_CTR",
	}
	var resp storeResponse
	if err := c.post(ctx, "/nonces", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", services.Wrap(services.ErrUpstream, "kms", "store nonce", resp.Error, nil)
	}
	if resp.ID == "" {
		return "", services.Wrap(services.ErrUpstream, "kms", "store nonce", "missing nonce id in response", nil)
	}
	return resp.ID, nil
}

// GetKey fetches a stored AES key by identifier.
func (c *Client) GetKey(ctx context.Context, keyID, userID string) ([]byte, error) {
	query := url.Values{
		"key_id":  {keyID},
		"user_id": {userID},
		"type":    {"AES_KEY"},
	}
	var resp keyResponse
	if err := c.get(ctx, "/keys", query, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, services.Wrap(services.ErrUpstream, "kms", "get key", resp.Error, nil)
	}
	key, err := base64.StdEncoding.DecodeString(resp.Key)
	if err != nil {
		return nil, services.Wrap(services.ErrEncoding, "kms", "get key", "malformed key in response", err)
	}
	return key, nil
}

// GetNonce fetches a stored CTR nonce by identifier.
func (c *Client) GetNonce(ctx context.Context, nonceID, userID string) ([]byte, error) {
	query := url.Values{
		"nonce_id": {nonceID},
		"user_id":  {userID},
	}
	var resp nonceResponse
	if err := c.get(ctx, "/nonces", query, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, services.Wrap(services.ErrUpstream, "kms", "get nonce", resp.Error, nil)
	}
	nonce, err := base64.StdEncoding.DecodeString(resp.Nonce)
	if err != nil {
		return nil, services.Wrap(services.ErrEncoding, "kms", "get nonce", "malformed nonce in response", err)
	}
	return nonce, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kms: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("kms: request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("kms: request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrUpstream, "kms", "request", "no base URL configured", nil)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "kms", "request", "key service timed out", err)
		}
		return services.Wrap(services.ErrUpstream, "kms", "request", "key service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "kms", "request", "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrUpstream, "kms", "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrUpstream, "kms", "request", "decode response", err)
	}
	return nil
}
