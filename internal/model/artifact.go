package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// FetchArtifact reads a model file from an http(s) URL, a file:// URL or a
// plain filesystem path.
func FetchArtifact(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("model artifact location is empty")
	}

	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" {
		return readFile(src)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return readFile(u.Path)
	case "http", "https":
		return download(ctx, client, u.String())
	default:
		return nil, fmt.Errorf("unsupported model artifact scheme %q", u.Scheme)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return data, nil
}

func download(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build model request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model download returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("model download returned an empty body")
	}
	return data, nil
}
