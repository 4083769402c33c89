package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"vocalis/internal/services"
)

const defaultDeliveryTimeout = 30 * time.Second

// Deliverer uploads finished report artifacts to the delivery endpoint.
type Deliverer struct {
	baseURL    string
	httpClient *http.Client
}

// DeliveryOption customises the deliverer.
type DeliveryOption func(*Deliverer)

// WithDeliveryHTTPClient overrides the HTTP client (for testing).
func WithDeliveryHTTPClient(client *http.Client) DeliveryOption {
	return func(d *Deliverer) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// NewDeliverer builds a deliverer for the given endpoint URL. An empty URL
// yields a nil deliverer, which disables delivery.
func NewDeliverer(baseURL string, timeout time.Duration, opts ...DeliveryOption) *Deliverer {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	d := &Deliverer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver uploads the artifact at path as a multipart form, tagging the
// request with the report and activity identifiers.
func (d *Deliverer) Deliver(ctx context.Context, reportID, activity, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrResource, "report", "deliver", "could not open report artifact", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return services.Wrap(services.ErrResource, "report", "deliver", "could not build upload form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return services.Wrap(services.ErrResource, "report", "deliver", "could not read report artifact", err)
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrResource, "report", "deliver", "could not finish upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, &body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "report", "deliver", "invalid delivery endpoint", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("reportID", reportID)
	req.Header.Set("activityName", activity)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "report", "deliver", "report delivery timed out", err)
		}
		return services.Wrap(services.ErrUpstream, "report", "deliver", "could not reach delivery endpoint", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrUpstream, "report", "deliver",
			fmt.Sprintf("delivery endpoint returned http %d", resp.StatusCode), nil)
	}
	return nil
}
