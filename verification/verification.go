// Package verification answers public "is this certificate genuine"
// lookups from the stored document state.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/cache"
	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/metrics"
	"github.com/georgepadayatti/esign/store"
)

// Reason says why a certificate is not valid.
type Reason string

const (
	ReasonNotFound     Reason = "certificate_not_found"
	ReasonNotGenerated Reason = "certificate_not_generated"
	ReasonNotCompleted Reason = "document_not_completed"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:     "This certificate does not exist in our system.",
	ReasonNotGenerated: "This document does not have a certificate yet.",
	ReasonNotCompleted: "This document has not been signed by all parties yet.",
}

// Message returns the user-facing explanation of r.
func (r Reason) Message() string { return reasonMessages[r] }

const notAvailable = "N/A"

// SignerSummary is one signature on a verified document.
type SignerSummary struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	SignedOn   *time.Time `json:"signedOn"`
	IPAddress  string     `json:"ipAddress"`
	ProfilePic string     `json:"profilePic,omitempty"`
}

// CreatorSummary describes who sent the document.
type CreatorSummary struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// Summary is the public view of a verified document.
type Summary struct {
	DocumentID     string          `json:"documentId"`
	DocumentName   string          `json:"documentName"`
	Organization   string          `json:"organization"`
	CreatedOn      time.Time       `json:"createdOn"`
	CompletedOn    *time.Time      `json:"completedOn"`
	CertificateURL string          `json:"certificateUrl"`
	SignedFileHash string          `json:"signedFileHash"`
	Status         document.Status `json:"status"`
	IsDeclined     bool            `json:"isDeclined"`
	IsExpired      bool            `json:"isExpired"`
	Signers        []SignerSummary `json:"signers"`
	TotalSigners   int             `json:"totalSigners"`
	Creator        CreatorSummary  `json:"creator"`
}

// Result is either Valid or Invalid.
type Result interface {
	isResult()
}

// Valid carries the summary of a genuine certificate.
type Valid struct {
	Summary Summary
}

// Invalid explains why no certificate could be confirmed.
type Invalid struct {
	Reason  Reason
	Message string
}

func (Valid) isResult()   {}
func (Invalid) isResult() {}

// MarshalJSON implements json.Marshaler.
func (v Valid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Valid       bool    `json:"valid"`
		Certificate Summary `json:"certificate"`
	}{true, v.Summary})
}

// MarshalJSON implements json.Marshaler.
func (i Invalid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Valid   bool   `json:"valid"`
		Reason  Reason `json:"reason"`
		Message string `json:"message"`
	}{false, i.Reason, i.Message})
}

func invalid(r Reason) Invalid {
	return Invalid{Reason: r, Message: r.Message()}
}

// Service looks documents up and caches valid summaries.
type Service struct {
	store   store.DocumentStore
	cache   *cache.TTLCache[string, Summary]
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Options configure a Service. Zero values disable caching and metrics.
type Options struct {
	CacheTTL  time.Duration
	CacheSize int
	Clock     clockwork.Clock
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// NewService creates a verification service reading from s.
func NewService(s store.DocumentStore, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   s,
		cache:   cache.New[string, Summary](clock, opts.CacheTTL, opts.CacheSize),
		clock:   clock,
		metrics: opts.Metrics,
		logger:  logger.With(zap.String("component", "verification")),
	}
}

// Verify checks, in order, that the document exists, has a certificate
// and is completed. Only store failures are returned as errors.
func (s *Service) Verify(ctx context.Context, id string) (Result, error) {
	if summary, ok := s.cache.Get(id); ok {
		s.metrics.ObserveVerification("valid")
		return Valid{Summary: summary}, nil
	}

	doc, err := s.store.Get(ctx, id)
	var res Result
	switch {
	case errors.Is(err, store.ErrNotFound):
		res = invalid(ReasonNotFound)
	case err != nil:
		s.logger.Error("verification lookup failed", zap.String("document_id", id), zap.Error(err))
		s.metrics.ObserveVerification("error")
		return nil, err
	case doc.CertificateURL == "":
		res = invalid(ReasonNotGenerated)
	case !doc.IsCompleted:
		res = invalid(ReasonNotCompleted)
	default:
		summary := Summarize(doc, s.clock.Now())
		s.cache.Set(id, summary)
		res = Valid{Summary: summary}
	}

	switch r := res.(type) {
	case Valid:
		s.metrics.ObserveVerification("valid")
	case Invalid:
		s.metrics.ObserveVerification(string(r.Reason))
	}
	return res, nil
}

// Invalidate drops a cached summary.
func (s *Service) Invalidate(id string) {
	s.cache.Delete(id)
}

// CacheStats exposes the summary cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Summarize builds the public view of doc at now.
func Summarize(doc *document.Document, now time.Time) Summary {
	sum := Summary{
		DocumentID:     doc.ID,
		DocumentName:   doc.Name,
		Organization:   orNA(doc.Organization.Name),
		CreatedOn:      doc.CreatedAt,
		CompletedOn:    doc.CompletedAt,
		CertificateURL: doc.CertificateURL,
		SignedFileHash: doc.ContentHash,
		Status:         doc.Status(now),
		IsDeclined:     doc.IsDeclined,
		IsExpired:      doc.IsExpired(now),
		Signers:        []SignerSummary{},
		Creator: CreatorSummary{
			Name:    orNA(doc.Creator.Name),
			Email:   orNA(doc.Creator.Email),
			Company: orNA(doc.Creator.Company),
		},
	}
	if doc.Organization.Name == "" && doc.Creator.Company != "" {
		sum.Organization = doc.Creator.Company
	}
	if sum.CompletedOn == nil {
		sum.CompletedOn = doc.LastSignedOn()
	}
	for _, e := range doc.AuditTrail {
		if e.Activity != document.ActivitySigned {
			continue
		}
		row := SignerSummary{Name: notAvailable, Email: notAvailable, SignedOn: e.SignedOn, IPAddress: orNA(e.IP)}
		if signer := doc.FindSigner(e.Signer); signer != nil {
			row.Name = orNA(signer.Name)
			row.Email = orNA(signer.Email)
			row.ProfilePic = signer.ProfilePicture
		} else if e.Name != "" || e.Email != "" {
			row.Name = orNA(e.Name)
			row.Email = orNA(e.Email)
		} else if len(doc.Signers) == 0 {
			row.Name = orNA(doc.Creator.Name)
			row.Email = orNA(doc.Creator.Email)
		}
		sum.Signers = append(sum.Signers, row)
	}
	sum.TotalSigners = len(sum.Signers)
	return sum
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
