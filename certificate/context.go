package certificate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/locale"
)

// ErrInvalidContext is matched by every ContextError.
var ErrInvalidContext = errors.New("invalid certificate context")

// ContextError lists the required fields a Context is missing.
type ContextError struct {
	Missing []string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("certificate context missing: %s", strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrInvalidContext.
func (e *ContextError) Unwrap() error { return ErrInvalidContext }

// Signer is one row of the signers table.
type Signer struct {
	Name  string
	Email string
	IP    string
	// SignatureImage is a URL readable by the generator's fetcher.
	SignatureImage string
	SentOn         *time.Time
	ViewedOn       *time.Time
	SignedOn       *time.Time
}

// Context is everything printed on a certificate.
type Context struct {
	DocumentID   string
	DocumentName string
	ContentHash  string
	CreatedAt    time.Time
	CompletedAt  *time.Time
	// GeneratedAt defaults to CompletedAt.
	GeneratedAt     time.Time
	SignerCount     int
	Sender          document.Party
	Organization    document.Organization
	OriginIP        string
	RequireOTP      bool
	Signers         []Signer
	VerificationURL string
	Messages        *locale.Messages
}

// Validate reports every missing required field at once.
func (c *Context) Validate() error {
	var missing []string
	if c.DocumentID == "" {
		missing = append(missing, "DocumentID")
	}
	if c.DocumentName == "" {
		missing = append(missing, "DocumentName")
	}
	if c.ContentHash == "" {
		missing = append(missing, "ContentHash")
	}
	if c.CompletedAt == nil {
		missing = append(missing, "CompletedAt")
	}
	if c.Messages == nil {
		missing = append(missing, "Messages")
	}
	if len(missing) > 0 {
		return &ContextError{Missing: missing}
	}
	return nil
}

// company is the organization name shown on the certificate.
func (c *Context) company() string {
	if c.Organization.Name != "" {
		return c.Organization.Name
	}
	return c.Sender.Company
}

// NewContext collects the certificate data of a completed document.
// Rows come from the Signed audit entries; when no signers were invited
// the creator signed alone.
func NewContext(doc *document.Document, verificationURL string, msgs *locale.Messages) *Context {
	c := &Context{
		DocumentID:      doc.ID,
		DocumentName:    doc.Name,
		ContentHash:     doc.ContentHash,
		CreatedAt:       doc.CreatedAt,
		CompletedAt:     doc.CompletedAt,
		SignerCount:     len(doc.Signers),
		Sender:          doc.Creator,
		Organization:    doc.Organization,
		OriginIP:        doc.OriginIP,
		RequireOTP:      doc.RequireOTP,
		VerificationURL: verificationURL,
		Messages:        msgs,
	}
	if doc.SentAt != nil {
		c.CreatedAt = *doc.SentAt
	}
	if c.SignerCount == 0 {
		c.SignerCount = 1
	}
	if c.CompletedAt == nil {
		c.CompletedAt = doc.LastSignedOn()
	}

	for _, e := range doc.AuditTrail {
		if e.Activity != document.ActivitySigned {
			continue
		}
		row := Signer{
			IP:             e.IP,
			SignatureImage: e.SignatureImage,
			SentOn:         doc.SentAt,
			ViewedOn:       e.ViewedOn,
			SignedOn:       e.SignedOn,
		}
		if s := doc.FindSigner(e.Signer); s != nil {
			row.Name, row.Email = s.Name, s.Email
		} else if e.Name != "" || e.Email != "" {
			row.Name, row.Email = e.Name, e.Email
		} else if len(doc.Signers) == 0 {
			row.Name, row.Email = doc.Creator.Name, doc.Creator.Email
		}
		if row.SentOn == nil {
			row.SentOn = e.SignedOn
		}
		if row.ViewedOn == nil {
			row.ViewedOn = e.SignedOn
		}
		c.Signers = append(c.Signers, row)
		if len(doc.Signers) == 0 {
			break
		}
	}
	return c
}
