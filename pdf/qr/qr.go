// Package qr renders QR codes as vector content for PDF content streams.
package qr

import (
	"bytes"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/georgepadayatti/esign/pdf/generic"
)

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("qr: empty content")

// ErrorCorrectionLevel represents the error correction level for QR codes.
type ErrorCorrectionLevel int

const (
	// ECLevelL provides ~7% error correction
	ECLevelL ErrorCorrectionLevel = iota
	// ECLevelM provides ~15% error correction
	ECLevelM
	// ECLevelQ provides ~25% error correction
	ECLevelQ
	// ECLevelH provides ~30% error correction
	ECLevelH
)

func (l ErrorCorrectionLevel) recovery() qrcode.RecoveryLevel {
	switch l {
	case ECLevelM:
		return qrcode.Medium
	case ECLevelQ:
		return qrcode.High
	case ECLevelH:
		return qrcode.Highest
	default:
		return qrcode.Low
	}
}

// QRCode is an encoded symbol. Modules[row][col] is true for dark modules.
type QRCode struct {
	Version int
	ECLevel ErrorCorrectionLevel
	Modules [][]bool
	Size    int
	// Border is the quiet zone, in modules, kept free around the symbol.
	Border  int
	QRColor [3]float64
}

// NewQRCode encodes data at the given error correction level, choosing the
// smallest version that fits.
func NewQRCode(data string, ecLevel ErrorCorrectionLevel) (*QRCode, error) {
	if data == "" {
		return nil, ErrEmptyContent
	}
	code, err := qrcode.New(data, ecLevel.recovery())
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}
	code.DisableBorder = true
	modules := code.Bitmap()
	return &QRCode{
		Version: code.VersionNumber,
		ECLevel: ecLevel,
		Modules: modules,
		Size:    len(modules),
		Border:  4,
	}, nil
}

// TotalModules returns the width of the symbol in modules, quiet zone
// included.
func (qr *QRCode) TotalModules() int {
	return qr.Size + 2*qr.Border
}

// RenderPDF returns content stream operators painting the symbol, quiet
// zone included, into the square with lower-left corner (x, y) and side
// size. The graphics state is saved and restored around the drawing.
func (qr *QRCode) RenderPDF(x, y, size float64) []byte {
	var buf bytes.Buffer
	box := size / float64(qr.TotalModules())
	brd := float64(qr.Border) * box

	buf.WriteString("q\n")
	fmt.Fprintf(&buf, "%s %s %s rg\n",
		generic.FormatReal(qr.QRColor[0]), generic.FormatReal(qr.QRColor[1]), generic.FormatReal(qr.QRColor[2]))
	// Flip the y axis so that rows count down from the top edge.
	fmt.Fprintf(&buf, "%s 0 0 %s %s %s cm\n",
		generic.FormatReal(box), generic.FormatReal(-box), generic.FormatReal(x+brd), generic.FormatReal(y+size-brd))
	for row := 0; row < qr.Size; row++ {
		for col := 0; col < qr.Size; col++ {
			if qr.Modules[row][col] {
				fmt.Fprintf(&buf, "%d %d 1 1 re\n", col, row)
			}
		}
	}
	buf.WriteString("f\nQ\n")
	return buf.Bytes()
}
