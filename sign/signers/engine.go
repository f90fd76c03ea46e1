package signers

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/keys"
	"github.com/georgepadayatti/esign/sign/cms"
)

// ErrCrypto marks failures caused by the signing identity or the
// cryptographic operation itself.
var ErrCrypto = errors.New("signing failed")

// Engine fills the signature placeholder of a finalized PDF.
type Engine struct {
	// Timestamper, when set, adds an RFC 3161 token to every signature.
	Timestamper cms.Timestamper

	clock  clockwork.Clock
	logger *zap.Logger
}

// NewEngine creates an engine. A nil clock means the real clock, a nil
// logger discards output.
func NewEngine(clock clockwork.Clock, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{clock: clock, logger: logger.With(zap.String("component", "signer"))}
}

// Sign signs finalized, which must end with a revision holding an unfilled
// signature dictionary, and returns the signed file. Problems with the
// bundle or the signature are reported wrapping ErrCrypto; a keystore file
// that cannot be written is reported as keys.ErrKeystoreIO.
func (e *Engine) Sign(finalized []byte, bundle keys.PKCS12Bundle) ([]byte, error) {
	p, err := findPlaceholder(finalized)
	if err != nil {
		return nil, err
	}

	cred, err := loadCredential(bundle)
	if errors.Is(err, keys.ErrKeystoreIO) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	out := make([]byte, len(finalized))
	copy(out, finalized)
	br := p.fill(out)
	content, err := br.SignedContent(out)
	if err != nil {
		return nil, err
	}
	defer clear(content)

	alg, err := cms.AlgorithmForKey(cred.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	builder := cms.NewCMSBuilder(cred.Certificate, cred.PrivateKey, alg)
	builder.CertChain = cred.CACerts
	builder.SigningTime = e.clock.Now().UTC()
	builder.Timestamper = e.Timestamper

	sig, err := builder.Sign(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	if len(sig) > p.capacity() {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrSignatureTooLarge, len(sig), p.capacity())
	}
	hex.Encode(out[p.contentsStart+1:], sig)

	e.logger.Debug("signed document",
		zap.String("signer", cred.Certificate.Subject.CommonName),
		zap.Int("size", len(out)),
		zap.Int("cms_size", len(sig)),
	)
	return out, nil
}

// loadCredential materializes the bundle as a private keystore file for the
// duration of the load.
func loadCredential(bundle keys.PKCS12Bundle) (*keys.Credential, error) {
	if len(bundle.Data) == 0 {
		return nil, keys.ErrEmptyBundle
	}
	ks, err := keys.NewTempKeystore(bundle)
	if err != nil {
		return nil, err
	}
	defer ks.Close()
	return ks.Load(bundle.Passphrase)
}
