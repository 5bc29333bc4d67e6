package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// maxRemoteResponse bounds the body read from an inference service.
const maxRemoteResponse = 256 << 20

type remoteRequest struct {
	Encoder []int `json:"encoder"`
	Decoder []int `json:"decoder"`
}

type remoteResponse struct {
	Logits [][]float32 `json:"logits"`
	Error  string      `json:"error,omitempty"`
}

// Remote delegates inference to an HTTP service that accepts
// {"encoder": [...], "decoder": [...]} and answers {"logits": [[...], ...]}.
type Remote struct {
	URL    string
	Client *http.Client
	// VocabSize, when set, is checked against the width of every returned row.
	VocabSize int
}

// NewRemote returns a Remote for url using http.DefaultClient.
func NewRemote(url string, vocabSize int) *Remote {
	return &Remote{URL: url, Client: http.DefaultClient, VocabSize: vocabSize}
}

func (r *Remote) Infer(ctx context.Context, enc, dec []int) ([][]float32, error) {
	if strings.TrimSpace(r.URL) == "" {
		return nil, fmt.Errorf("remote model: no url configured")
	}
	body, err := json.Marshal(remoteRequest{Encoder: enc, Decoder: dec})
	if err != nil {
		return nil, fmt.Errorf("remote model: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote model: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return nil, fmt.Errorf("remote model: read response: %w", err)
	}
	var out remoteResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return nil, fmt.Errorf("remote model: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("remote model: decode response: %w", decodeErr)
	}
	if len(out.Logits) != len(dec) {
		return nil, fmt.Errorf("remote model: got %d rows of logits for %d decoder positions", len(out.Logits), len(dec))
	}
	if r.VocabSize > 0 {
		for i, row := range out.Logits {
			if len(row) != r.VocabSize {
				return nil, fmt.Errorf("remote model: row %d has %d logits, want %d", i, len(row), r.VocabSize)
			}
		}
	}
	return out.Logits, nil
}
