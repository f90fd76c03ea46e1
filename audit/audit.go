// Package audit maintains the per-signer audit trail of a document and
// decides when the last required signature has been collected.
package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/esign/document"
)

// ErrValidation is returned for events that cannot be recorded.
var ErrValidation = errors.New("invalid audit event")

// ValidationError describes a rejected event.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// SignatureEvent is one signer applying their signature.
type SignatureEvent struct {
	Signer document.SignerRef
	Name   string
	Email  string
	IP     string
	// SignatureImage is the stored URL of the drawn signature, if any.
	SignatureImage string
	SignedURL      string
	// SignedOn defaults to the tracker clock.
	SignedOn time.Time
}

// ViewEvent is one party opening the document.
type ViewEvent struct {
	Signer   document.SignerRef
	IP       string
	ViewedOn time.Time
}

// Result is the trail after recording an event.
type Result struct {
	Trail     []document.AuditEntry
	Completed bool
}

// Tracker records audit events. It never mutates the documents it is given.
type Tracker struct {
	clock clockwork.Clock
}

// NewTracker creates a tracker. A nil clock means the real clock.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock}
}

// RecordSignature merges ev into the signer's existing entry, or appends a
// new Signed entry, and reports whether the result completes doc.
func (t *Tracker) RecordSignature(doc *document.Document, ev SignatureEvent) (Result, error) {
	if doc == nil {
		return Result{}, &ValidationError{Field: "document", Message: "is required"}
	}
	if ev.Signer.IsZero() {
		return Result{}, &ValidationError{Field: "signer", Message: "reference is required"}
	}
	signedOn := ev.SignedOn
	if signedOn.IsZero() {
		signedOn = t.clock.Now()
	}
	signedOn = signedOn.UTC()

	trail := document.CloneTrail(doc.AuditTrail)
	entry := document.AuditEntry{
		Signer:         ev.Signer,
		Activity:       document.ActivitySigned,
		SignedOn:       &signedOn,
		IP:             ev.IP,
		Name:           ev.Name,
		Email:          ev.Email,
		SignatureImage: ev.SignatureImage,
		SignedURL:      ev.SignedURL,
	}
	if i := findEntry(trail, ev.Signer); i >= 0 {
		existing := trail[i]
		entry.ViewedOn = existing.ViewedOn
		if entry.SignatureImage == "" {
			entry.SignatureImage = existing.SignatureImage
		}
		if entry.Name == "" && entry.Email == "" {
			entry.Name, entry.Email = existing.Name, existing.Email
		}
		trail[i] = entry
	} else {
		trail = append(trail, entry)
	}

	return Result{Trail: trail, Completed: doc.CompletionReached(trail)}, nil
}

// RecordView notes that a party opened the document. A Signed entry keeps
// its activity and only gains the view time.
func (t *Tracker) RecordView(doc *document.Document, ev ViewEvent) ([]document.AuditEntry, error) {
	if doc == nil {
		return nil, &ValidationError{Field: "document", Message: "is required"}
	}
	if ev.Signer.IsZero() {
		return nil, &ValidationError{Field: "signer", Message: "reference is required"}
	}
	viewedOn := ev.ViewedOn
	if viewedOn.IsZero() {
		viewedOn = t.clock.Now()
	}
	viewedOn = viewedOn.UTC()

	trail := document.CloneTrail(doc.AuditTrail)
	if i := findEntry(trail, ev.Signer); i >= 0 {
		if trail[i].ViewedOn == nil {
			trail[i].ViewedOn = &viewedOn
		}
		if trail[i].Activity != document.ActivitySigned && trail[i].Activity != document.ActivityDeclined {
			trail[i].Activity = document.ActivityViewed
			trail[i].ViewedOn = &viewedOn
			trail[i].IP = ev.IP
		}
		return trail, nil
	}
	return append(trail, document.AuditEntry{
		Signer:   ev.Signer,
		Activity: document.ActivityViewed,
		ViewedOn: &viewedOn,
		IP:       ev.IP,
	}), nil
}

// findEntry returns the index of the signer's entry, skipping Created
// entries which belong to the sender.
func findEntry(trail []document.AuditEntry, ref document.SignerRef) int {
	for i, e := range trail {
		if e.Activity != document.ActivityCreated && e.Signer.SameParty(ref) {
			return i
		}
	}
	return -1
}
