package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSignerRef is returned for signer references that cannot be
// resolved.
var ErrInvalidSignerRef = errors.New("invalid signer reference")

// Class names used by the account and contact stores.
const (
	AccountClass = "_User"
	ContactClass = "contracts_Contactbook"
)

// SignerRefKind discriminates SignerRef variants.
type SignerRefKind int

const (
	// RefNone is the zero SignerRef.
	RefNone SignerRefKind = iota
	// RefAccount points at a user account.
	RefAccount
	// RefContact points at an address book contact.
	RefContact
	// RefPointer is any other object, kept by class name.
	RefPointer
)

func (k SignerRefKind) String() string {
	switch k {
	case RefAccount:
		return "account"
	case RefContact:
		return "contact"
	case RefPointer:
		return "pointer"
	default:
		return "none"
	}
}

// SignerRef identifies the party behind a placeholder or audit entry.
type SignerRef struct {
	kind  SignerRefKind
	class string
	id    string
}

// ByAccount references a user account.
func ByAccount(id string) SignerRef { return SignerRef{kind: RefAccount, id: id} }

// ByContact references an address book contact.
func ByContact(id string) SignerRef { return SignerRef{kind: RefContact, id: id} }

// RawPointer references an object of any other class.
func RawPointer(class, id string) SignerRef {
	return SignerRef{kind: RefPointer, class: class, id: id}
}

// ParseSignerRef resolves a loosely shaped reference as received at the
// API boundary. An explicit kind wins; otherwise the class name decides.
func ParseSignerRef(kind, className, id string) (SignerRef, error) {
	if id == "" {
		return SignerRef{}, fmt.Errorf("%w: missing id", ErrInvalidSignerRef)
	}
	switch kind {
	case "account":
		return ByAccount(id), nil
	case "contact":
		return ByContact(id), nil
	case "pointer":
		if className == "" {
			return SignerRef{}, fmt.Errorf("%w: pointer without class", ErrInvalidSignerRef)
		}
		return RawPointer(className, id), nil
	case "":
	default:
		return SignerRef{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSignerRef, kind)
	}
	switch className {
	case AccountClass:
		return ByAccount(id), nil
	case ContactClass:
		return ByContact(id), nil
	case "":
		return SignerRef{}, fmt.Errorf("%w: missing kind and class", ErrInvalidSignerRef)
	default:
		return RawPointer(className, id), nil
	}
}

// Kind returns the variant.
func (r SignerRef) Kind() SignerRefKind { return r.kind }

// ID returns the referenced object id.
func (r SignerRef) ID() string { return r.id }

// Class returns the class name of the referenced object.
func (r SignerRef) Class() string {
	switch r.kind {
	case RefAccount:
		return AccountClass
	case RefContact:
		return ContactClass
	default:
		return r.class
	}
}

// IsZero reports whether r references nothing.
func (r SignerRef) IsZero() bool { return r.kind == RefNone || r.id == "" }

// SameParty reports whether r and o name the same party. Object ids are
// unique across classes, so only the id is compared.
func (r SignerRef) SameParty(o SignerRef) bool {
	return !r.IsZero() && r.id == o.id
}

func (r SignerRef) String() string {
	if r.IsZero() {
		return "none"
	}
	return r.Class() + "/" + r.id
}

type signerRefJSON struct {
	Kind      string `json:"kind"`
	ClassName string `json:"className,omitempty"`
	ID        string `json:"id"`
}

// MarshalJSON implements json.Marshaler.
func (r SignerRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	v := signerRefJSON{Kind: r.kind.String(), ID: r.id}
	if r.kind == RefPointer {
		v.ClassName = r.class
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SignerRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = SignerRef{}
		return nil
	}
	var v signerRefJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseSignerRef(v.Kind, v.ClassName, v.ID)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
