// Package document holds the signing envelope model: the document, its
// placeholders and signers, and the audit trail.
package document

import (
	"time"
)

// Activity is the kind of an audit entry.
type Activity string

const (
	ActivityCreated  Activity = "Created"
	ActivitySigned   Activity = "Signed"
	ActivityViewed   Activity = "Viewed"
	ActivityDeclined Activity = "Declined"
)

// Role is the purpose of a placeholder.
type Role string

const (
	RoleSigner Role = "signer"
	// RolePrefill placeholders are filled by the sender and never signed.
	RolePrefill Role = "prefill"
)

// Status is the lifecycle state of a document, derived at read time.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSent      Status = "Sent"
	StatusCompleted Status = "Completed"
	StatusDeclined  Status = "Declined"
	StatusExpired   Status = "Expired"
)

// Position is a placeholder widget location on a page.
type Position struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placeholder reserves places in the document for one party.
type Placeholder struct {
	Signer    SignerRef  `json:"signer"`
	Role      Role       `json:"role"`
	Email     string     `json:"email,omitempty"`
	Positions []Position `json:"positions,omitempty"`
}

// Signer is a party invited to sign.
type Signer struct {
	Ref            SignerRef `json:"ref"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	// OTPHash is the bcrypt hash of the one-time code sent to the signer.
	OTPHash string `json:"-"`
}

// AuditEntry records one event of one party.
type AuditEntry struct {
	Signer   SignerRef  `json:"signer"`
	Activity Activity   `json:"activity"`
	SignedOn *time.Time `json:"signedOn,omitempty"`
	ViewedOn *time.Time `json:"viewedOn,omitempty"`
	IP       string     `json:"ip,omitempty"`
	// Name and Email are the party as they identified themselves when
	// signing, shown when the party is not an invited signer.
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	// SignatureImage is the URL of the drawn signature, if any.
	SignatureImage string `json:"signatureImage,omitempty"`
	SignedURL      string `json:"signedUrl,omitempty"`
}

// Party is a named person, such as the document creator.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Plant is the site of the sending organization.
type Plant struct {
	Name     string `json:"name,omitempty"`
	Address  string `json:"address,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
	TaxID    string `json:"taxId,omitempty"`
}

// HasAddress reports whether any address detail is known.
func (p *Plant) HasAddress() bool {
	return p != nil && (p.Address != "" || p.City != "" || p.TaxID != "")
}

// Organization carries the sender's presentation preferences.
type Organization struct {
	Name       string `json:"name,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	DateFormat string `json:"dateFormat,omitempty"`
	Is12Hour   bool   `json:"is12Hour,omitempty"`
	Plant      *Plant `json:"plant,omitempty"`
}

// Document is a signing envelope.
type Document struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Placeholders    []Placeholder `json:"placeholders"`
	Signers         []Signer      `json:"signers"`
	AuditTrail      []AuditEntry  `json:"auditTrail"`
	SignedURL       string        `json:"signedUrl,omitempty"`
	CertificateURL  string        `json:"certificateUrl,omitempty"`
	VerificationURL string        `json:"verificationUrl,omitempty"`
	ContentHash     string        `json:"contentHash,omitempty"`
	IsCompleted     bool          `json:"isCompleted"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	IsDeclined      bool          `json:"isDeclined"`
	ExpiresAt       *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	SentAt          *time.Time    `json:"sentAt,omitempty"`
	RequireOTP      bool          `json:"requireOtp"`
	OriginIP        string        `json:"originIp,omitempty"`
	Locale          string        `json:"locale,omitempty"`
	Creator         Party         `json:"creator"`
	Organization    Organization  `json:"organization"`
	Version         int64         `json:"version"`
	LastError       string        `json:"lastError,omitempty"`
}

// Status derives the lifecycle state at now.
func (d *Document) Status(now time.Time) Status {
	switch {
	case d.IsDeclined:
		return StatusDeclined
	case d.IsCompleted:
		return StatusCompleted
	case d.IsExpired(now):
		return StatusExpired
	case d.SignedURL == "":
		return StatusDraft
	default:
		return StatusSent
	}
}

// IsExpired reports whether the signing deadline passed before now.
func (d *Document) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// RequiredSignatures counts the placeholders that must be signed.
func (d *Document) RequiredSignatures() int {
	n := 0
	for _, p := range d.Placeholders {
		if p.Role != RolePrefill {
			n++
		}
	}
	return n
}

// SignedCount counts the Signed audit entries.
func (d *Document) SignedCount() int {
	return countSigned(d.AuditTrail)
}

func countSigned(trail []AuditEntry) int {
	n := 0
	for _, e := range trail {
		if e.Activity == ActivitySigned {
			n++
		}
	}
	return n
}

// CompletionReached reports whether trail completes d: every non-prefill
// placeholder has a signature, or, when no signers were invited, anyone has
// signed.
func (d *Document) CompletionReached(trail []AuditEntry) bool {
	signed := countSigned(trail)
	if len(d.Signers) == 0 {
		return signed > 0
	}
	required := d.RequiredSignatures()
	return required > 0 && signed == required
}

// FindSigner returns the invited signer matching ref.
func (d *Document) FindSigner(ref SignerRef) *Signer {
	for i := range d.Signers {
		if d.Signers[i].Ref.SameParty(ref) {
			return &d.Signers[i]
		}
	}
	return nil
}

// LastSignedOn returns the SignedOn of the last audit entry that has one.
func (d *Document) LastSignedOn() *time.Time {
	for i := len(d.AuditTrail) - 1; i >= 0; i-- {
		if t := d.AuditTrail[i].SignedOn; t != nil {
			tt := *t
			return &tt
		}
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Placeholders = make([]Placeholder, len(d.Placeholders))
	for i, p := range d.Placeholders {
		p.Positions = append([]Position(nil), p.Positions...)
		c.Placeholders[i] = p
	}
	c.Signers = append([]Signer(nil), d.Signers...)
	c.AuditTrail = CloneTrail(d.AuditTrail)
	c.CompletedAt = cloneTime(d.CompletedAt)
	c.ExpiresAt = cloneTime(d.ExpiresAt)
	c.SentAt = cloneTime(d.SentAt)
	if d.Organization.Plant != nil {
		plant := *d.Organization.Plant
		c.Organization.Plant = &plant
	}
	return &c
}

// CloneTrail deep-copies an audit trail.
func CloneTrail(trail []AuditEntry) []AuditEntry {
	if trail == nil {
		return nil
	}
	out := make([]AuditEntry, len(trail))
	for i, e := range trail {
		e.SignedOn = cloneTime(e.SignedOn)
		e.ViewedOn = cloneTime(e.ViewedOn)
		out[i] = e
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	tt := *t
	return &tt
}
