// Package service orchestrates signing: audit tracking, finalization,
// PKCS#12 signing, storage and certificate generation for a document.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/audit"
	"github.com/georgepadayatti/esign/certificate"
	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/keys"
	"github.com/georgepadayatti/esign/locale"
	"github.com/georgepadayatti/esign/metrics"
	"github.com/georgepadayatti/esign/sign/digest"
	"github.com/georgepadayatti/esign/sign/finalizer"
	"github.com/georgepadayatti/esign/sign/signers"
	"github.com/georgepadayatti/esign/storage"
	"github.com/georgepadayatti/esign/store"
	"github.com/georgepadayatti/esign/verification"
)

// MaxConflictRetries bounds the re-read and retry cycles after a version
// conflict in the document store.
const MaxConflictRetries = 3

// StatusSuccess is the status of every successful SignResponse.
const StatusSuccess = "success"

// Config holds the descriptive values written into signatures.
type Config struct {
	ESignName   string
	ContactInfo string
	Location    string
	// PublicURL is the base of verification links.
	PublicURL string
}

// Dependencies are the collaborators of a Service. Verifier, Metrics,
// Clock and Logger are optional.
type Dependencies struct {
	Store        store.DocumentStore
	Objects      storage.ObjectStore
	Finalizer    *finalizer.Finalizer
	Engine       *signers.Engine
	Certificates *certificate.Generator
	Verifier     *verification.Service
	Bundle       keys.PKCS12Bundle
	Clock        clockwork.Clock
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// SignerIdentity is the party submitting a signature.
type SignerIdentity struct {
	Ref   document.SignerRef
	Name  string
	Email string
	// OTP is the one-time code for documents that require one.
	OTP string
}

// SignRequest carries one signature submission.
type SignRequest struct {
	DocumentID     string
	PDF            []byte
	Signer         SignerIdentity
	SignatureImage []byte
	OriginIP       string
}

// SignResponse reports where the current document lives.
type SignResponse struct {
	Status    string `json:"status"`
	SignedURL string `json:"signedUrl"`
	Completed bool   `json:"completed"`
	// CertificateURL is set once the completion certificate exists.
	CertificateURL string `json:"certificateUrl,omitempty"`
}

// CertificateResponse locates a completion certificate.
type CertificateResponse struct {
	CertificateURL  string `json:"certificateUrl"`
	VerificationURL string `json:"verificationUrl"`
}

// ViewRequest records a party opening a document.
type ViewRequest struct {
	DocumentID string
	Signer     document.SignerRef
	IP         string
}

// Service runs the signing pipeline. Work on one document is serialized
// in-process; the store's version check guards against other processes.
type Service struct {
	cfg     Config
	deps    Dependencies
	tracker *audit.Tracker
	locks   *keyedMutex
	clock   clockwork.Clock
	logger  *zap.Logger
}

// New creates a Service.
func New(cfg Config, deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ESignName == "" {
		cfg.ESignName = "esign"
	}
	if cfg.Location == "" {
		cfg.Location = "n/a"
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Service{
		cfg:     cfg,
		deps:    deps,
		tracker: audit.NewTracker(deps.Clock),
		locks:   newKeyedMutex(),
		clock:   deps.Clock,
		logger:  deps.Logger.With(zap.String("component", "service")),
	}
}

// VerificationURL returns the public verification link of a document.
func (s *Service) VerificationURL(id string) string {
	return s.cfg.PublicURL + "/verify/" + id
}

// SignDocument records the signature of req.Signer. While signatures are
// missing the submitted PDF is stored as is; the last one finalizes and
// signs the document and then generates its certificate.
func (s *Service) SignDocument(ctx context.Context, req SignRequest) (*SignResponse, error) {
	start := s.clock.Now()
	log := s.logger.With(zap.String("document_id", req.DocumentID), zap.Stringer("signer", req.Signer.Ref))

	resp, serr := s.signDocument(ctx, req, log)
	if serr != nil {
		s.deps.Metrics.ObserveSign(metrics.OutcomeError, s.clock.Since(start))
		log.Error("sign request failed", zap.String("code", string(serr.Code)), zap.Error(serr))
		s.recordFailure(ctx, req.DocumentID, serr)
		return nil, serr
	}

	outcome := metrics.OutcomeSuccess
	if resp.Completed {
		outcome = metrics.OutcomeCompleted
	}
	s.deps.Metrics.ObserveSign(outcome, s.clock.Since(start))
	log.Info("signature recorded", zap.Bool("completed", resp.Completed))
	return resp, nil
}

func (s *Service) signDocument(ctx context.Context, req SignRequest, log *zap.Logger) (*SignResponse, *Error) {
	switch {
	case req.DocumentID == "":
		return nil, newError(CodeValidation, "document id is required", nil)
	case len(req.PDF) == 0:
		return nil, newError(CodeValidation, "pdf is required", nil)
	case req.Signer.Ref.IsZero():
		return nil, newError(CodeValidation, "signer reference is required", nil)
	}

	unlock := s.locks.Lock(req.DocumentID)
	defer unlock()

	var imageURL string
	for attempt := 1; attempt <= MaxConflictRetries; attempt++ {
		doc, err := s.deps.Store.Get(ctx, req.DocumentID)
		if err != nil {
			return nil, storeError(err)
		}
		if serr := s.checkSignable(doc, req.Signer); serr != nil {
			return nil, serr
		}

		if imageURL == "" && len(req.SignatureImage) > 0 {
			imageURL, err = s.deps.Objects.Upload(ctx, "signature_"+req.Signer.Ref.ID()+".png",
				req.SignatureImage, http.DetectContentType(req.SignatureImage))
			if err != nil {
				return nil, newError(CodeIO, "uploading signature image", err)
			}
		}

		res, err := s.tracker.RecordSignature(doc, audit.SignatureEvent{
			Signer:         req.Signer.Ref,
			Name:           req.Signer.Name,
			Email:          req.Signer.Email,
			IP:             req.OriginIP,
			SignatureImage: imageURL,
			SignedOn:       s.clock.Now(),
		})
		if err != nil {
			if errors.Is(err, audit.ErrValidation) {
				return nil, newError(CodeValidation, err.Error(), err)
			}
			return nil, newError(CodeInternal, "recording signature", err)
		}

		next := doc.Clone()
		next.AuditTrail = res.Trail
		next.LastError = ""
		if res.Completed {
			if serr := s.complete(ctx, next, req); serr != nil {
				return nil, serr
			}
		} else {
			url, err := s.deps.Objects.Upload(ctx, "signed_"+doc.Name+".pdf", req.PDF, storage.ContentTypePDF)
			if err != nil {
				return nil, newError(CodeIO, "uploading document", err)
			}
			next.SignedURL = url
		}
		setSignedURL(next.AuditTrail, req.Signer.Ref, next.SignedURL)

		err = s.deps.Store.Update(ctx, req.DocumentID, store.Update{ExpectedVersion: doc.Version, Document: next})
		if errors.Is(err, store.ErrVersionConflict) {
			log.Warn("version conflict, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, storeError(err)
		}

		resp := &SignResponse{Status: StatusSuccess, SignedURL: next.SignedURL, Completed: res.Completed}
		if res.Completed {
			s.invalidate(req.DocumentID)
			cert, serr := s.generateCertificate(ctx, req.DocumentID, log)
			if serr != nil {
				log.Error("certificate generation failed", zap.Error(serr))
				s.recordFailure(ctx, req.DocumentID, serr)
			} else {
				resp.CertificateURL = cert.CertificateURL
			}
		}
		return resp, nil
	}
	return nil, newError(CodeInternal, "document changed concurrently", store.ErrVersionConflict)
}

// checkSignable refuses finished documents and unknown or unauthenticated
// signers.
func (s *Service) checkSignable(doc *document.Document, id SignerIdentity) *Error {
	switch {
	case doc.IsDeclined:
		return newError(CodeValidation, "document was declined", nil)
	case doc.IsCompleted:
		return newError(CodeValidation, "document is already completed", nil)
	case doc.IsExpired(s.clock.Now()):
		return newError(CodeValidation, "document has expired", nil)
	}
	signer := doc.FindSigner(id.Ref)
	if len(doc.Signers) > 0 && signer == nil {
		return newError(CodeUnauthorized, "signer is not invited to this document", nil)
	}
	if doc.RequireOTP {
		return checkOTP(signer, id.OTP)
	}
	return nil
}

// complete finalizes, signs and stores the document, filling the completion
// fields of next.
func (s *Service) complete(ctx context.Context, next *document.Document, req SignRequest) *Error {
	finalized, err := s.deps.Finalizer.Finalize(req.PDF, finalizer.Options{
		Reason:      s.reason(next, req.Signer),
		Location:    s.cfg.Location,
		Name:        s.cfg.ESignName,
		ContactInfo: s.cfg.ContactInfo,
	})
	if err != nil {
		return finalizeError(err)
	}
	signed, err := s.deps.Engine.Sign(finalized, s.deps.Bundle)
	if err != nil {
		return signError(err)
	}
	hash := digest.Hex(signed)

	url, err := s.deps.Objects.Upload(ctx, "signed_"+next.Name+".pdf", signed, storage.ContentTypePDF)
	if err != nil {
		return newError(CodeIO, "uploading signed document", err)
	}

	next.SignedURL = url
	next.ContentHash = hash
	next.IsCompleted = true
	next.CompletedAt = next.LastSignedOn()
	if next.CompletedAt == nil {
		now := s.clock.Now().UTC()
		next.CompletedAt = &now
	}
	return nil
}

// reason lists every invited signer, or the submitting signer when nobody
// was invited.
func (s *Service) reason(doc *document.Document, id SignerIdentity) string {
	var parties []string
	for _, sg := range doc.Signers {
		parties = append(parties, fmt.Sprintf("%s <%s>", sg.Name, sg.Email))
	}
	if len(parties) == 0 {
		parties = append(parties, fmt.Sprintf("%s <%s>", id.Name, id.Email))
	}
	return fmt.Sprintf("Digitally signed by %s for %s", s.cfg.ESignName, strings.Join(parties, ", "))
}

// GenerateCertificate creates the completion certificate of a completed
// document. A document that already has one is returned unchanged.
func (s *Service) GenerateCertificate(ctx context.Context, id string) (*CertificateResponse, error) {
	log := s.logger.With(zap.String("document_id", id))
	if id == "" {
		return nil, newError(CodeValidation, "document id is required", nil)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	resp, serr := s.generateCertificate(ctx, id, log)
	if serr != nil {
		log.Error("certificate request failed", zap.String("code", string(serr.Code)), zap.Error(serr))
		s.recordFailure(ctx, id, serr)
		return nil, serr
	}
	return resp, nil
}

// generateCertificate expects the caller to hold the document lock.
func (s *Service) generateCertificate(ctx context.Context, id string, log *zap.Logger) (*CertificateResponse, *Error) {
	verifyURL := s.VerificationURL(id)
	var certURL string
	for attempt := 1; attempt <= MaxConflictRetries; attempt++ {
		doc, err := s.deps.Store.Get(ctx, id)
		if err != nil {
			return nil, storeError(err)
		}
		if doc.CertificateURL != "" {
			return &CertificateResponse{CertificateURL: doc.CertificateURL, VerificationURL: doc.VerificationURL}, nil
		}
		if !doc.IsCompleted {
			return nil, newError(CodeValidation, "document is not completed", nil)
		}

		if certURL == "" {
			certURL, err = s.buildCertificate(ctx, doc, verifyURL)
			if err != nil {
				s.deps.Metrics.ObserveCertificate(metrics.OutcomeError)
				var serr *Error
				if errors.As(err, &serr) {
					return nil, serr
				}
				return nil, newError(CodeInternal, "generating certificate", err)
			}
		}

		next := doc.Clone()
		next.CertificateURL = certURL
		next.VerificationURL = verifyURL
		err = s.deps.Store.Update(ctx, id, store.Update{ExpectedVersion: doc.Version, Document: next})
		if errors.Is(err, store.ErrVersionConflict) {
			log.Warn("version conflict, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, storeError(err)
		}

		s.invalidate(id)
		s.deps.Metrics.ObserveCertificate(metrics.OutcomeSuccess)
		log.Info("certificate generated", zap.String("url", certURL))
		return &CertificateResponse{CertificateURL: certURL, VerificationURL: verifyURL}, nil
	}
	return nil, newError(CodeInternal, "document changed concurrently", store.ErrVersionConflict)
}

func (s *Service) buildCertificate(ctx context.Context, doc *document.Document, verifyURL string) (string, error) {
	cctx := certificate.NewContext(doc, verifyURL, certificateMessages(doc))
	raw, err := s.deps.Certificates.Generate(ctx, cctx)
	if err != nil {
		return "", err
	}
	finalized, err := s.deps.Finalizer.Finalize(raw, finalizer.Options{
		Reason:      fmt.Sprintf("Digitally signed by %s.", s.cfg.ESignName),
		Location:    s.cfg.Location,
		Name:        s.cfg.ESignName,
		ContactInfo: s.cfg.ContactInfo,
	})
	if err != nil {
		return "", finalizeError(err)
	}
	signed, err := s.deps.Engine.Sign(finalized, s.deps.Bundle)
	if err != nil {
		return "", signError(err)
	}
	url, err := s.deps.Objects.Upload(ctx, "certificate_"+doc.Name+".pdf", signed, storage.ContentTypePDF)
	if err != nil {
		return "", newError(CodeIO, "uploading certificate", err)
	}
	return url, nil
}

// RecordView notes that a party opened a document.
func (s *Service) RecordView(ctx context.Context, req ViewRequest) error {
	if req.DocumentID == "" {
		return newError(CodeValidation, "document id is required", nil)
	}
	unlock := s.locks.Lock(req.DocumentID)
	defer unlock()

	for attempt := 1; attempt <= MaxConflictRetries; attempt++ {
		doc, err := s.deps.Store.Get(ctx, req.DocumentID)
		if err != nil {
			return storeError(err)
		}
		trail, err := s.tracker.RecordView(doc, audit.ViewEvent{Signer: req.Signer, IP: req.IP, ViewedOn: s.clock.Now()})
		if err != nil {
			return newError(CodeValidation, err.Error(), err)
		}
		next := doc.Clone()
		next.AuditTrail = trail
		err = s.deps.Store.Update(ctx, req.DocumentID, store.Update{ExpectedVersion: doc.Version, Document: next})
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return storeError(err)
		}
		return nil
	}
	return newError(CodeInternal, "document changed concurrently", store.ErrVersionConflict)
}

// recordFailure stores a diagnostic on the document. Client errors are
// not recorded and failures to record are only logged.
func (s *Service) recordFailure(ctx context.Context, id string, serr *Error) {
	switch serr.Code {
	case CodeCrypto, CodeIO, CodeInternal:
	default:
		return
	}
	if id == "" {
		return
	}
	msg := fmt.Sprintf("%s %s", s.clock.Now().UTC().Format(time.RFC3339), serr.Error())
	for attempt := 1; attempt <= MaxConflictRetries; attempt++ {
		doc, err := s.deps.Store.Get(ctx, id)
		if err != nil {
			return
		}
		next := doc.Clone()
		next.LastError = msg
		err = s.deps.Store.Update(ctx, id, store.Update{ExpectedVersion: doc.Version, Document: next})
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.logger.Warn("could not record failure", zap.String("document_id", id), zap.Error(err))
		}
		return
	}
}

func (s *Service) invalidate(id string) {
	if s.deps.Verifier != nil {
		s.deps.Verifier.Invalidate(id)
	}
}

// setSignedURL stamps the signer's Signed entry with the stored document.
func setSignedURL(trail []document.AuditEntry, ref document.SignerRef, url string) {
	for i := len(trail) - 1; i >= 0; i-- {
		if trail[i].Activity == document.ActivitySigned && trail[i].Signer.SameParty(ref) {
			trail[i].SignedURL = url
			return
		}
	}
}

// certificateMessages picks the document locale, falling back to English.
func certificateMessages(doc *document.Document) *locale.Messages {
	return locale.Match(doc.Locale)
}

func storeError(err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(CodeNotFound, "document not found", err)
	}
	return newError(CodeInternal, "document store", err)
}

func finalizeError(err error) *Error {
	switch {
	case errors.Is(err, finalizer.ErrInvalidPDF),
		errors.Is(err, finalizer.ErrNoPages),
		errors.Is(err, finalizer.ErrEncrypted):
		return newError(CodeValidation, "document cannot be finalized", err)
	default:
		return newError(CodeInternal, "finalizing document", err)
	}
}

func signError(err error) *Error {
	switch {
	case errors.Is(err, signers.ErrCrypto):
		return newError(CodeCrypto, "signing document", err)
	case errors.Is(err, keys.ErrKeystoreIO):
		return newError(CodeIO, "signing document", err)
	}
	return newError(CodeInternal, "signing document", err)
}
