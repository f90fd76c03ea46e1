package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/esign/certificate"
	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/keys/keytest"
	"github.com/georgepadayatti/esign/metrics"
	"github.com/georgepadayatti/esign/pdf/pdftest"
	"github.com/georgepadayatti/esign/service"
	"github.com/georgepadayatti/esign/sign/finalizer"
	"github.com/georgepadayatti/esign/sign/signers"
	"github.com/georgepadayatti/esign/storage"
	"github.com/georgepadayatti/esign/store"
	"github.com/georgepadayatti/esign/verification"
)

var ana = document.ByAccount("ana")

type testEnv struct {
	server *Server
	store  *store.MemoryStore
}

func newTestEnv(t *testing.T, docs store.DocumentStore) *testEnv {
	t.Helper()
	mem := store.NewMemoryStore()
	if docs == nil {
		docs = mem
	}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	objects := storage.NewMemoryStore()
	m := metrics.New()
	verifier := verification.NewService(docs, verification.Options{CacheTTL: time.Minute, CacheSize: 8, Clock: clock, Metrics: m})
	svc := service.New(service.Config{PublicURL: "https://sign.example.com"}, service.Dependencies{
		Store:        docs,
		Objects:      objects,
		Finalizer:    finalizer.New(clock, nil),
		Engine:       signers.NewEngine(clock, nil),
		Certificates: certificate.NewGenerator(objects, clock, nil),
		Verifier:     verifier,
		Bundle:       keytest.NewBundle(t, "pw"),
		Clock:        clock,
		Metrics:      m,
	})
	srv := NewServer(Options{Service: svc, Verifier: verifier, Metrics: m, Mode: gin.TestMode})

	err := mem.Create(context.Background(), &document.Document{
		ID:           "doc1",
		Name:         "Lease",
		Placeholders: []document.Placeholder{{Signer: ana, Role: document.RoleSigner}},
		Signers:      []document.Signer{{Ref: ana, Name: "Ana", Email: "ana@example.com"}},
		CreatedAt:    clock.Now().Add(-time.Hour),
		Creator:      document.Party{Name: "Olivia", Email: "olivia@example.com", Company: "Acme"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return &testEnv{server: srv, store: mem}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func signPayload(t *testing.T, ref interface{}) map[string]interface{} {
	return map[string]interface{}{
		"pdf": base64.StdEncoding.EncodeToString(pdftest.FormDocument(t)),
		"signer": map[string]interface{}{
			"ref":   ref,
			"name":  "Ana",
			"email": "ana@example.com",
		},
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Invalid error body %q: %v", w.Body.String(), err)
	}
	if env.RequestID == "" || env.RequestID != w.Header().Get(requestIDHeader) {
		t.Errorf("Expected request id %q in body, got %q", w.Header().Get(requestIDHeader), env.RequestID)
	}
	return env
}

func TestSignAndVerify(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/documents/doc1/sign",
		signPayload(t, map[string]string{"kind": "account", "id": "ana"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp service.SignResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.Status != "success" || !resp.Completed || resp.SignedURL == "" {
		t.Errorf("Unexpected response %+v", resp)
	}
	entry := env.mustGet(t).AuditTrail[0]
	if entry.IP != "192.0.2.1" {
		t.Errorf("Expected the client IP to be recorded, got %q", entry.IP)
	}

	w = env.do(t, http.MethodGet, "/api/v1/verify/doc1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var result struct {
		Valid       bool                 `json:"valid"`
		Certificate verification.Summary `json:"certificate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !result.Valid || result.Certificate.DocumentName != "Lease" || result.Certificate.TotalSigners != 1 {
		t.Errorf("Unexpected verification %+v", result)
	}

	w = env.do(t, http.MethodPost, "/api/v1/documents/doc1/certificate", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "https://sign.example.com/verify/doc1") {
		t.Errorf("Expected the existing certificate, got %d: %s", w.Code, w.Body.String())
	}
}

func (e *testEnv) mustGet(t *testing.T) *document.Document {
	t.Helper()
	doc, err := e.store.Get(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return doc
}

func TestSignErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing document", "/api/v1/documents/nope/sign", signPayload(t, map[string]string{"kind": "account", "id": "ana"}), http.StatusNotFound, "not_found"},
		{"not invited", "/api/v1/documents/doc1/sign", signPayload(t, map[string]string{"kind": "account", "id": "eve"}), http.StatusUnauthorized, "unauthorized"},
		{"bad reference", "/api/v1/documents/doc1/sign", signPayload(t, map[string]string{"kind": "robot", "id": "ana"}), http.StatusBadRequest, "validation_error"},
		{"bad base64", "/api/v1/documents/doc1/sign", map[string]interface{}{"pdf": "%%%", "signer": map[string]interface{}{"ref": map[string]string{"kind": "account", "id": "ana"}}}, http.StatusBadRequest, "validation_error"},
		{"missing pdf", "/api/v1/documents/doc1/sign", map[string]interface{}{"signer": map[string]interface{}{}}, http.StatusBadRequest, "validation_error"},
		{"bad signature image", "/api/v1/documents/doc1/sign", func() interface{} {
			p := signPayload(t, map[string]string{"kind": "account", "id": "ana"})
			p["signature"] = "data:image/png;base64,###"
			return p
		}(), http.StatusBadRequest, "validation_error"},
	}
	env := newTestEnv(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body, nil)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if got := decodeError(t, w).Error.Code; got != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, got)
			}
		})
	}
}

func TestRequestIDPropagated(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/documents/nope/certificate", nil, http.Header{requestIDHeader: {"abc-123"}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	if env := decodeError(t, w); env.RequestID != "abc-123" {
		t.Errorf("Expected abc-123, got %s", env.RequestID)
	}
}

func TestCertificateBeforeCompletion(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/documents/doc1/certificate", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != "validation_error" {
		t.Errorf("Expected validation_error, got %s", got)
	}
}

func TestRecordView(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/documents/doc1/view",
		map[string]interface{}{"signer": map[string]string{"kind": "account", "id": "ana"}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	trail := env.mustGet(t).AuditTrail
	if len(trail) != 1 || trail[0].Activity != document.ActivityViewed {
		t.Errorf("Expected one Viewed entry, got %+v", trail)
	}
}

func TestVerifyInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		id     string
		reason string
	}{
		{"nope", "certificate_not_found"},
		{"doc1", "certificate_not_generated"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/verify/"+tt.id, nil, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if body["valid"] != false || body["reason"] != tt.reason {
				t.Errorf("Expected invalid %s, got %v", tt.reason, body)
			}
		})
	}
}

func TestVerifyPage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/documents/doc1/sign",
		signPayload(t, map[string]string{"className": "_User", "id": "ana"}), nil)

	tests := []struct {
		name   string
		path   string
		header http.Header
		want   []string
	}{
		{"default english", "/verify/doc1", nil, []string{`lang="en"`, "Certificate Verified", "Lease", "Olivia"}},
		{"query language", "/verify/doc1?lang=pt-BR", nil, []string{`lang="pt-BR"`, "Certificado Verificado"}},
		{"accept language", "/verify/doc1", http.Header{"Accept-Language": {"de-DE,de;q=0.9"}}, []string{`lang="de"`}},
		{"query wins", "/verify/doc1?lang=es", http.Header{"Accept-Language": {"de"}}, []string{`lang="es"`}},
		{"unknown language", "/verify/doc1?lang=xx", nil, []string{`lang="en"`}},
		{"not found", "/verify/nope", nil, []string{"Certificate Not Valid", "certificate_not_found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil, tt.header)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			for _, s := range tt.want {
				if !strings.Contains(w.Body.String(), s) {
					t.Errorf("Expected page to contain %q", s)
				}
			}
		})
	}
}

// failingStore fails every read.
type failingStore struct {
	store.DocumentStore
}

func (failingStore) Get(context.Context, string) (*document.Document, error) {
	return nil, errors.New("connection refused")
}

func TestVerifyStoreFailure(t *testing.T) {
	env := newTestEnv(t, failingStore{})

	w := env.do(t, http.MethodGet, "/api/v1/verify/doc1", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != "internal" {
		t.Errorf("Expected internal, got %s", got)
	}

	w = env.do(t, http.MethodGet, "/verify/doc1", nil, nil)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Verification Error") {
		t.Errorf("Expected the error page, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/documents/doc1/sign",
		signPayload(t, map[string]string{"kind": "account", "id": "ana"}), nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("Internal causes should not leak to clients")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"up"`) {
		t.Errorf("Unexpected health response %d: %s", w.Code, w.Body.String())
	}

	env.do(t, http.MethodGet, "/api/v1/verify/nope", nil, nil)
	w = env.do(t, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `esign_verifications_total{result="certificate_not_found"} 1`) {
		t.Error("Expected the verification counter in the exposition")
	}
}

func TestRecoverPanic(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.engine.GET("/boom", func(*gin.Context) { panic("boom") })
	w := env.do(t, http.MethodGet, "/boom", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != "internal" {
		t.Errorf("Expected internal, got %s", got)
	}
}
