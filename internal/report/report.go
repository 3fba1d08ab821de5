// Package report delivers resolved-case records to the reporting backend via
// an HTTP webhook.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/navigator/internal/triage"
)

const httpTimeout = 10 * time.Second

// Emitter posts case records to a reporting webhook.
type Emitter struct {
	webhookURL string
	authToken  string
	client     *http.Client
}

// New creates an Emitter. If webhookURL is empty, Emit is a no-op. authToken
// is optional and sent as a bearer token when set.
func New(webhookURL, authToken string) *Emitter {
	return &Emitter{
		webhookURL: webhookURL,
		authToken:  authToken,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Emit posts one record to the configured webhook. Records are immutable;
// delivery retries are the receiving side's concern, so a failed POST is
// returned as an error and not re-attempted here.
func (e *Emitter) Emit(ctx context.Context, rec *triage.Record) error {
	if e.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("report: marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("report: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.authToken)
	}

	resp, err := e.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("report: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("report: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
