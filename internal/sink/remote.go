package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// markRequest is the attendance endpoint's request body.
type markRequest struct {
	FaceID string `json:"face_id"`
}

// errorResponse is the attendance endpoint's failure body.
type errorResponse struct {
	Error string `json:"error"`
}

// Remote posts accepted events to the attendance-recording endpoint.
// Delivery is best-effort and never retried: a created response is
// success, a conflict response is a non-fatal duplicate, anything
// else is an error for the dispatcher to log and drop.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates a remote sink for the given endpoint URL.
func NewRemote(url string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Remote{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Deliver posts one event to the attendance endpoint.
func (s *Remote) Deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(markRequest{FaceID: ev.Key})
	if err != nil {
		return fmt.Errorf("could not marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		// The store already has a record inside its own window. Not an
		// error: the engine's ledger and the store's dedup can disagree
		// across restarts.
		zap.L().Debug("attendance already recorded",
			zap.String("face_id", ev.Key))
		return nil
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, readErrorBody(resp.Body))
	}
}

// readErrorBody extracts the error field from a failure response,
// falling back to the raw body.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable response body"
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return string(body)
}
