package timestamps

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/digitorus/timestamp"
)

func TestTimestampSendsQuery(t *testing.T) {
	data := []byte("signature value")
	var gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/timestamp-query" {
			t.Errorf("Expected timestamp-query content type, got %q", ct)
		}
		gotUser, _, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		req, err := timestamp.ParseRequest(body)
		if err != nil {
			t.Errorf("ParseRequest failed: %v", err)
		} else {
			digest := sha256.Sum256(data)
			if req.HashAlgorithm != crypto.SHA256 {
				t.Errorf("Expected SHA-256, got %v", req.HashAlgorithm)
			}
			if !bytes.Equal(req.HashedMessage, digest[:]) {
				t.Error("Request should carry the digest of the data")
			}
			if !req.Certificates {
				t.Error("Request should ask for certificates")
			}
		}
		// Not a TimeStampResp.
		w.Write([]byte{0x30, 0x00})
	}))
	defer server.Close()

	ts := NewHTTPTimestamper(server.URL, time.Second)
	ts.SetCredentials("user", "pass")
	if _, err := ts.Timestamp(data); !errors.Is(err, ErrTimestampRejected) {
		t.Errorf("Expected ErrTimestampRejected, got %v", err)
	}
	if gotUser != "user" {
		t.Errorf("Expected basic auth user, got %q", gotUser)
	}
}

func TestTimestampHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPTimestamper(server.URL, time.Second).Timestamp([]byte("x"))
	if !errors.Is(err, ErrTimestampFailed) {
		t.Errorf("Expected ErrTimestampFailed, got %v", err)
	}
}

func TestTimestampUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPTimestamper(url, time.Second).Timestamp([]byte("x"))
	if !errors.Is(err, ErrTimestampFailed) {
		t.Errorf("Expected ErrTimestampFailed, got %v", err)
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := Inspect([]byte("nope")); !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("Expected ErrInvalidTimestamp, got %v", err)
	}
}
