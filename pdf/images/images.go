// Package images turns raster images into PDF image XObjects.
package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/georgepadayatti/esign/pdf/filters"
	"github.com/georgepadayatti/esign/pdf/generic"
)

// Common errors
var (
	ErrInvalidImage      = errors.New("invalid image data")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrInvalidDataURL    = errors.New("invalid data URL")
)

// ColorSpace represents a PDF color space.
type ColorSpace string

const (
	ColorSpaceGray ColorSpace = "DeviceGray"
	ColorSpaceRGB  ColorSpace = "DeviceRGB"
)

// PDFImage is a decoded image ready for embedding. Data holds the
// uncompressed samples unless Filter names the encoding they are in.
type PDFImage struct {
	Width      int
	Height     int
	ColorSpace ColorSpace
	Data       []byte
	// Filter is "DCTDecode" for JPEG data embedded as is.
	Filter string
	// Alpha holds one 8-bit sample per pixel when the image is not opaque.
	Alpha []byte
	// Format is the name reported by image.Decode.
	Format string
}

// ObjectAdder is implemented by both document writers.
type ObjectAdder interface {
	AddObject(obj generic.PdfObject) generic.Reference
}

// Decode reads a PNG, JPEG, GIF or WebP image. Baseline JPEG data is kept
// in its compressed form.
func Decode(data []byte) (*PDFImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if format == "jpeg" {
		switch img.ColorModel() {
		case color.YCbCrModel, color.GrayModel:
			b := img.Bounds()
			cs := ColorSpaceRGB
			if img.ColorModel() == color.GrayModel {
				cs = ColorSpaceGray
			}
			return &PDFImage{Width: b.Dx(), Height: b.Dy(), ColorSpace: cs, Data: data, Filter: "DCTDecode", Format: format}, nil
		}
	}
	out, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	out.Format = format
	return out, nil
}

// DecodeDataURL decodes an image given as a base64 data URL, the form in
// which drawn signatures are usually submitted.
func DecodeDataURL(url string) (*PDFImage, error) {
	raw, err := DataURLBytes(url)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// DataURLBytes returns the payload of a base64 data URL.
func DataURLBytes(url string) ([]byte, error) {
	if !strings.HasPrefix(url, "data:") {
		return nil, ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(url[len("data:"):], ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return raw, nil
}

// FromImage samples img into 8-bit gray or RGB data with an optional alpha
// channel.
func FromImage(img image.Image) (*PDFImage, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}

	gray := false
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		gray = true
	}

	out := &PDFImage{Width: width, Height: height, ColorSpace: ColorSpaceRGB}
	components := 3
	if gray {
		out.ColorSpace = ColorSpaceGray
		components = 1
	}
	out.Data = make([]byte, 0, width*height*components)
	alpha := make([]byte, 0, width*height)
	opaque := true

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if gray {
				out.Data = append(out.Data, c.R)
			} else {
				out.Data = append(out.Data, c.R, c.G, c.B)
			}
			alpha = append(alpha, c.A)
			if c.A != 0xFF {
				opaque = false
			}
		}
	}
	if !opaque {
		out.Alpha = alpha
	}
	return out, nil
}

// Fit scales the image down, keeping its aspect ratio, so that it is no
// larger than maxWidth x maxHeight pixels. Smaller images are returned
// unchanged.
func (img *PDFImage) Fit(maxWidth, maxHeight int) (*PDFImage, error) {
	if img.Width <= maxWidth && img.Height <= maxHeight {
		return img, nil
	}
	src, err := img.raster()
	if err != nil {
		return nil, err
	}
	scale := min(float64(maxWidth)/float64(img.Width), float64(maxHeight)/float64(img.Height))
	w := max(1, int(float64(img.Width)*scale))
	h := max(1, int(float64(img.Height)*scale))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	out, err := FromImage(dst)
	if err != nil {
		return nil, err
	}
	out.Format = img.Format
	return out, nil
}

// raster rebuilds a Go image from the stored samples.
func (img *PDFImage) raster() (image.Image, error) {
	if img.Filter == "DCTDecode" {
		return jpeg.Decode(bytes.NewReader(img.Data))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	components := 3
	if img.ColorSpace == ColorSpaceGray {
		components = 1
	}
	if len(img.Data) < img.Width*img.Height*components {
		return nil, ErrInvalidImage
	}
	for i := 0; i < img.Width*img.Height; i++ {
		px := dst.Pix[i*4 : i*4+4]
		if components == 1 {
			px[0], px[1], px[2] = img.Data[i], img.Data[i], img.Data[i]
		} else {
			copy(px, img.Data[i*3:i*3+3])
		}
		px[3] = 0xFF
		if img.Alpha != nil {
			px[3] = img.Alpha[i]
		}
	}
	return dst, nil
}

// HasAlpha reports whether the image carries transparency.
func (img *PDFImage) HasAlpha() bool {
	return len(img.Alpha) > 0
}

// AddTo writes the image, and its soft mask if any, as XObjects and returns
// the reference of the image.
func (img *PDFImage) AddTo(w ObjectAdder) (generic.Reference, error) {
	dict := generic.NewDictionary()
	dict.Set("Type", generic.NameObject("XObject"))
	dict.Set("Subtype", generic.NameObject("Image"))
	dict.Set("Width", generic.IntegerObject(img.Width))
	dict.Set("Height", generic.IntegerObject(img.Height))
	dict.Set("ColorSpace", generic.NameObject(img.ColorSpace))
	dict.Set("BitsPerComponent", generic.IntegerObject(8))

	if img.HasAlpha() {
		maskDict := generic.NewDictionary()
		maskDict.Set("Type", generic.NameObject("XObject"))
		maskDict.Set("Subtype", generic.NameObject("Image"))
		maskDict.Set("Width", generic.IntegerObject(img.Width))
		maskDict.Set("Height", generic.IntegerObject(img.Height))
		maskDict.Set("ColorSpace", generic.NameObject(ColorSpaceGray))
		maskDict.Set("BitsPerComponent", generic.IntegerObject(8))
		mask, err := filters.NewFlateStream(maskDict, img.Alpha)
		if err != nil {
			return generic.Reference{}, err
		}
		dict.Set("SMask", w.AddObject(mask))
	}

	if img.Filter != "" {
		dict.Set("Filter", generic.NameObject(img.Filter))
		return w.AddObject(generic.NewStream(dict, img.Data)), nil
	}
	stream, err := filters.NewFlateStream(dict, img.Data)
	if err != nil {
		return generic.Reference{}, err
	}
	return w.AddObject(stream), nil
}
