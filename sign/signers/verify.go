package signers

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/georgepadayatti/esign/sign/cms"
)

// SignatureStatus is the outcome of VerifyPDF.
type SignatureStatus struct {
	*cms.SignerDetails
	ByteRange ByteRange
	// CoversWholeFile is false when bytes were appended after signing.
	CoversWholeFile bool
}

// VerifyPDF checks the last signature of data: the CMS must verify over
// the regions named by its /ByteRange.
func VerifyPDF(data []byte) (*SignatureStatus, error) {
	br, err := parseByteRange(data)
	if err != nil {
		return nil, err
	}
	if br.FirstRegionLen < 0 || br.SecondRegionOffset > int64(len(data)) || br.FirstRegionLen+2 > br.SecondRegionOffset {
		return nil, fmt.Errorf("%w: %s", ErrInvalidByteRange, br)
	}
	gap := data[br.FirstRegionLen:br.SecondRegionOffset]
	if gap[0] != '<' || gap[len(gap)-1] != '>' {
		return nil, fmt.Errorf("%w: gap is not a hex string", ErrInvalidByteRange)
	}
	// The zero padding after the DER value is ignored by the parser.
	hexSig := bytes.TrimSpace(gap[1 : len(gap)-1])
	sig := make([]byte, hex.DecodedLen(len(hexSig)))
	if _, err := hex.Decode(sig, hexSig); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidByteRange, err)
	}

	content, err := br.SignedContent(data)
	if err != nil {
		return nil, err
	}
	details, err := cms.Verify(sig, content)
	if err != nil {
		return nil, err
	}
	return &SignatureStatus{
		SignerDetails:   details,
		ByteRange:       br,
		CoversWholeFile: br.SecondRegionOffset+br.SecondRegionLen == int64(len(data)),
	}, nil
}
