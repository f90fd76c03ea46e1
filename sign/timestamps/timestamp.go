// Package timestamps provides RFC 3161 timestamp support.
package timestamps

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/digitorus/timestamp"
)

// Common errors
var (
	ErrTimestampFailed   = errors.New("timestamp request failed")
	ErrTimestampRejected = errors.New("timestamp request rejected")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrTimestampMismatch = errors.New("timestamp message imprint mismatch")
)

// maxResponseSize bounds how much of a TSA response is read.
const maxResponseSize = 1 << 20

// HTTPTimestamper requests tokens from an RFC 3161 timestamp authority.
type HTTPTimestamper struct {
	URL        string
	HTTPClient *http.Client
	Username   string
	Password   string
}

// NewHTTPTimestamper creates a new HTTP timestamper.
func NewHTTPTimestamper(url string, timeout time.Duration) *HTTPTimestamper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTimestamper{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// SetCredentials sets authentication credentials.
func (t *HTTPTimestamper) SetCredentials(username, password string) {
	t.Username = username
	t.Password = password
}

// Timestamp returns a DER timestamp token over the SHA-256 digest of data.
func (t *HTTPTimestamper) Timestamp(data []byte) ([]byte, error) {
	return t.TimestampContext(context.Background(), data)
}

// TimestampContext is Timestamp bound to ctx.
func (t *HTTPTimestamper) TimestampContext(ctx context.Context, data []byte) ([]byte, error) {
	req, err := timestamp.CreateRequest(bytes.NewReader(data), &timestamp.RequestOptions{
		Hash:         crypto.SHA256,
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/timestamp-query")
	if t.Username != "" {
		httpReq.SetBasicAuth(t.Username, t.Password)
	}

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimestampFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrTimestampFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimestampFailed, err)
	}

	ts, err := timestamp.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimestampRejected, err)
	}
	digest := sha256.Sum256(data)
	if !bytes.Equal(ts.HashedMessage, digest[:]) {
		return nil, ErrTimestampMismatch
	}
	return ts.RawToken, nil
}

// TokenInfo summarizes a timestamp token.
type TokenInfo struct {
	Time         time.Time
	SerialNumber *big.Int
	Policy       string
	HashedData   []byte
}

// Inspect parses a timestamp token.
func Inspect(token []byte) (*TokenInfo, error) {
	ts, err := timestamp.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return &TokenInfo{
		Time:         ts.Time,
		SerialNumber: ts.SerialNumber,
		Policy:       ts.Policy.String(),
		HashedData:   ts.HashedMessage,
	}, nil
}
