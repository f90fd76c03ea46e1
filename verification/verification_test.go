package verification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/metrics"
	"github.com/georgepadayatti/esign/store"
)

var now = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

func completedDoc(id string) *document.Document {
	signed := now.Add(-time.Hour)
	a := document.ByContact("a")
	return &document.Document{
		ID:             id,
		Name:           "NDA",
		CreatedAt:      now.Add(-48 * time.Hour),
		SignedURL:      "https://files/signed.pdf",
		CertificateURL: "https://files/cert.pdf",
		ContentHash:    "abc123",
		IsCompleted:    true,
		Signers:        []document.Signer{{Ref: a, Name: "Ana", ProfilePicture: "https://pics/ana.png"}},
		Placeholders:   []document.Placeholder{{Signer: a, Role: document.RoleSigner}},
		AuditTrail: []document.AuditEntry{
			{Signer: a, Activity: document.ActivitySigned, SignedOn: &signed},
		},
		Creator: document.Party{Name: "Olivia", Email: "o@example.com"},
	}
}

type countingStore struct {
	store.DocumentStore
	gets int
	err  error
}

func (s *countingStore) Get(ctx context.Context, id string) (*document.Document, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	return s.DocumentStore.Get(ctx, id)
}

func newService(t *testing.T, docs ...*document.Document) (*Service, *countingStore, *clockwork.FakeClock, *metrics.Metrics) {
	t.Helper()
	mem := store.NewMemoryStore()
	for _, d := range docs {
		if err := mem.Create(context.Background(), d); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	cs := &countingStore{DocumentStore: mem}
	clock := clockwork.NewFakeClockAt(now)
	m := metrics.New()
	svc := NewService(cs, Options{CacheTTL: time.Minute, CacheSize: 10, Clock: clock, Metrics: m})
	return svc, cs, clock, m
}

func TestVerifyInvalid(t *testing.T) {
	noCert := completedDoc("nocert")
	noCert.CertificateURL = ""
	pending := completedDoc("pending")
	pending.IsCompleted = false

	svc, _, _, m := newService(t, noCert, pending)
	tests := []struct {
		id       string
		expected Reason
	}{
		{"missing", ReasonNotFound},
		{"nocert", ReasonNotGenerated},
		{"pending", ReasonNotCompleted},
	}
	for _, tt := range tests {
		res, err := svc.Verify(context.Background(), tt.id)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		inv, ok := res.(Invalid)
		if !ok {
			t.Fatalf("%s: Expected Invalid, got %T", tt.id, res)
		}
		if inv.Reason != tt.expected || inv.Message != tt.expected.Message() {
			t.Errorf("%s: Expected %s, got %s (%q)", tt.id, tt.expected, inv.Reason, inv.Message)
		}
	}
	if got := testutil.ToFloat64(m.Verifications.WithLabelValues(string(ReasonNotFound))); got != 1 {
		t.Errorf("Expected 1 not-found verification, got %v", got)
	}
}

func TestVerifyValid(t *testing.T) {
	svc, _, _, _ := newService(t, completedDoc("ok"))
	res, err := svc.Verify(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	v, ok := res.(Valid)
	if !ok {
		t.Fatalf("Expected Valid, got %T", res)
	}
	s := v.Summary
	if s.Status != document.StatusCompleted || s.SignedFileHash != "abc123" || s.TotalSigners != 1 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.Organization != "N/A" || s.Creator.Company != "N/A" {
		t.Errorf("Expected N/A defaults, got %q %q", s.Organization, s.Creator.Company)
	}
	if len(s.Signers) != 1 {
		t.Fatalf("Expected 1 signer, got %d", len(s.Signers))
	}
	sg := s.Signers[0]
	if sg.Name != "Ana" || sg.Email != "N/A" || sg.IPAddress != "N/A" || sg.ProfilePic != "https://pics/ana.png" {
		t.Errorf("Unexpected signer %+v", sg)
	}
	if s.CompletedOn == nil || !s.CompletedOn.Equal(now.Add(-time.Hour)) {
		t.Errorf("Expected completion from the audit trail, got %v", s.CompletedOn)
	}
}

func TestVerifyCache(t *testing.T) {
	svc, cs, clock, _ := newService(t, completedDoc("ok"), func() *document.Document {
		d := completedDoc("pending")
		d.IsCompleted = false
		return d
	}())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(ctx, "ok"); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
	}
	if cs.gets != 1 {
		t.Errorf("Expected 1 store read, got %d", cs.gets)
	}
	clock.Advance(2 * time.Minute)
	svc.Verify(ctx, "ok")
	if cs.gets != 2 {
		t.Errorf("Expected a reload after expiry, got %d reads", cs.gets)
	}

	svc.Verify(ctx, "pending")
	svc.Verify(ctx, "pending")
	if cs.gets != 4 {
		t.Errorf("Invalid results must not be cached, got %d reads", cs.gets)
	}

	svc.Invalidate("ok")
	svc.Verify(ctx, "ok")
	if cs.gets != 5 {
		t.Errorf("Expected a reload after Invalidate, got %d reads", cs.gets)
	}
	if stats := svc.CacheStats(); stats.Hits != 2 {
		t.Errorf("Expected 2 cache hits, got %d", stats.Hits)
	}
}

func TestVerifyStoreError(t *testing.T) {
	svc, cs, _, _ := newService(t)
	cs.err = errors.New("connection refused")
	if _, err := svc.Verify(context.Background(), "x"); err == nil {
		t.Error("Expected store failures to surface")
	}
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(Valid{Summary: Summarize(completedDoc("ok"), now)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"valid":true`, `"documentId":"ok"`, `"signedFileHash":"abc123"`, `"status":"Completed"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s in %s", want, data)
		}
	}
	data, _ = json.Marshal(invalid(ReasonNotGenerated))
	if string(data) != `{"valid":false,"reason":"certificate_not_generated","message":"This document does not have a certificate yet."}` {
		t.Errorf("Unexpected JSON %s", data)
	}
}

func TestSummarizeExpiredAndDeclined(t *testing.T) {
	d := completedDoc("d")
	d.IsCompleted = false
	d.IsDeclined = true
	past := now.Add(-time.Minute)
	d.ExpiresAt = &past
	s := Summarize(d, now)
	if !s.IsDeclined || !s.IsExpired || s.Status != document.StatusDeclined {
		t.Errorf("Unexpected flags %+v", s)
	}
}

func TestSummarizeCountsSignedEntries(t *testing.T) {
	signed := now.Add(-time.Hour)
	a, b, c := document.ByContact("a"), document.ByContact("b"), document.ByAccount("c")
	doc := completedDoc("partial")
	doc.Signers = []document.Signer{
		{Ref: a, Name: "Ana", Email: "ana@example.com"},
		{Ref: b, Name: "Bruno", Email: "bruno@example.com"},
	}
	doc.AuditTrail = []document.AuditEntry{
		{Signer: a, Activity: document.ActivitySigned, SignedOn: &signed},
		{Signer: b, Activity: document.ActivityViewed, ViewedOn: &signed},
		{Signer: c, Activity: document.ActivitySigned, SignedOn: &signed, Name: "Carla", Email: "carla@example.com"},
	}

	s := Summarize(doc, now)
	if s.TotalSigners != 2 {
		t.Errorf("Expected 2 signers, got %d", s.TotalSigners)
	}
	if len(s.Signers) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(s.Signers))
	}
	if s.Signers[0].Name != "Ana" {
		t.Errorf("Expected Ana, got %q", s.Signers[0].Name)
	}
	if s.Signers[1].Name != "Carla" || s.Signers[1].Email != "carla@example.com" {
		t.Errorf("Expected the entry's own identity, got %q %q", s.Signers[1].Name, s.Signers[1].Email)
	}
}
