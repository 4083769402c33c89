package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"vocalis/internal/services"
)

// Download streams a remote video to dest. maxSize of zero disables the
// size cap.
func Download(ctx context.Context, client *http.Client, url, dest string, maxSize int64) error {
	if url == "" {
		return services.Wrap(services.ErrValidation, "download", "fetch", "no video link provided", nil)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "download", "fetch", "invalid video link", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "download", "fetch", "download timed out", err)
		}
		return services.Wrap(services.ErrUpstream, "download", "fetch", "could not reach video host", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrUpstream, "download", "fetch",
			fmt.Sprintf("video host returned http %d", resp.StatusCode), nil)
	}

	out, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrResource, "download", "write", "could not create video file", err)
	}
	defer out.Close()

	reader := io.Reader(resp.Body)
	if maxSize > 0 {
		reader = io.LimitReader(resp.Body, maxSize+1)
	}
	written, err := io.Copy(out, reader)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "download", "write", "download timed out", err)
		}
		return services.Wrap(services.ErrResource, "download", "write", "could not save video file", err)
	}
	if maxSize > 0 && written > maxSize {
		out.Close()
		_ = os.Remove(dest)
		return services.Wrap(services.ErrValidation, "download", "write",
			fmt.Sprintf("video exceeds the %d byte limit", maxSize), nil)
	}
	if err := out.Sync(); err != nil {
		return services.Wrap(services.ErrResource, "download", "write", "could not flush video file", err)
	}
	return nil
}
