package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/georgepadayatti/esign/pdf/filters"
	"github.com/georgepadayatti/esign/pdf/generic"
)

func createTestPNG(t *testing.T, width, height int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: alpha})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	return buf.Bytes()
}

// objectList collects added objects in memory.
type objectList struct {
	objects []generic.PdfObject
}

func (l *objectList) AddObject(obj generic.PdfObject) generic.Reference {
	l.objects = append(l.objects, obj)
	return generic.NewReference(len(l.objects), 0)
}

func (l *objectList) get(ref generic.Reference) generic.PdfObject {
	return l.objects[ref.ObjectNumber-1]
}

func TestDecodePNG(t *testing.T) {
	img, err := Decode(createTestPNG(t, 10, 4, 255))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Width != 10 || img.Height != 4 {
		t.Errorf("Expected 10x4, got %dx%d", img.Width, img.Height)
	}
	if img.ColorSpace != ColorSpaceRGB {
		t.Errorf("Expected DeviceRGB, got %s", img.ColorSpace)
	}
	if len(img.Data) != 10*4*3 {
		t.Errorf("Expected %d bytes, got %d", 10*4*3, len(img.Data))
	}
	if img.HasAlpha() {
		t.Error("Opaque image should not carry alpha")
	}
	if img.Format != "png" {
		t.Errorf("Expected format png, got %s", img.Format)
	}
}

func TestDecodeTransparentPNG(t *testing.T) {
	img, err := Decode(createTestPNG(t, 3, 3, 100))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !img.HasAlpha() || img.Alpha[0] != 100 {
		t.Errorf("Expected alpha channel of 100, got %v", img.Alpha)
	}
}

func TestDecodeJPEGKeepsData(t *testing.T) {
	data := createTestJPEG(t, 8, 8)
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Filter != "DCTDecode" {
		t.Errorf("Expected DCTDecode, got %q", img.Filter)
	}
	if !bytes.Equal(img.Data, data) {
		t.Error("JPEG data should be embedded unchanged")
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte("not an image")); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage, got %v", err)
	}
}

func TestDecodeDataURL(t *testing.T) {
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(createTestPNG(t, 2, 2, 255))
	img, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if img.Width != 2 {
		t.Errorf("Expected width 2, got %d", img.Width)
	}

	for _, bad := range []string{"https://example.com/a.png", "data:image/png,abc", "data:image/png;base64,!!!"} {
		if _, err := DataURLBytes(bad); !errors.Is(err, ErrInvalidDataURL) {
			t.Errorf("%q: expected ErrInvalidDataURL, got %v", bad, err)
		}
	}
}

func TestFromGrayImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 77})
	img, err := FromImage(gray)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if img.ColorSpace != ColorSpaceGray || len(img.Data) != 4 || img.Data[3] != 77 {
		t.Errorf("Unexpected gray image %+v", img)
	}
}

func TestFromImageInvalidDimensions(t *testing.T) {
	if _, err := FromImage(image.NewRGBA(image.Rect(0, 0, 0, 5))); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions, got %v", err)
	}
}

func TestFit(t *testing.T) {
	img, err := Decode(createTestPNG(t, 400, 100, 255))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	fitted, err := img.Fit(220, 80)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if fitted.Width != 220 || fitted.Height != 55 {
		t.Errorf("Expected 220x55, got %dx%d", fitted.Width, fitted.Height)
	}

	same, err := fitted.Fit(500, 500)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if same != fitted {
		t.Error("Small image should be returned unchanged")
	}
}

func TestAddTo(t *testing.T) {
	img, err := Decode(createTestPNG(t, 4, 2, 128))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	objs := &objectList{}
	ref, err := img.AddTo(objs)
	if err != nil {
		t.Fatalf("AddTo failed: %v", err)
	}
	if len(objs.objects) != 2 {
		t.Fatalf("Expected image and mask, got %d objects", len(objs.objects))
	}
	stream := objs.get(ref).(*generic.StreamObject)
	if stream.Dictionary.GetName("Subtype") != "Image" {
		t.Errorf("Expected Image subtype, got %s", stream.Dictionary.GetName("Subtype"))
	}
	if w, _ := stream.Dictionary.GetInt("Width"); w != 4 {
		t.Errorf("Expected width 4, got %d", w)
	}
	samples, err := filters.DecodeStream(stream)
	if err != nil {
		t.Fatalf("DecodeStream failed: %v", err)
	}
	if len(samples) != 4*2*3 {
		t.Errorf("Expected 24 samples, got %d", len(samples))
	}
	maskRef, ok := stream.Dictionary.Get("SMask").(generic.Reference)
	if !ok {
		t.Fatal("Expected /SMask reference")
	}
	mask := objs.get(maskRef).(*generic.StreamObject)
	if mask.Dictionary.GetName("ColorSpace") != "DeviceGray" {
		t.Errorf("Mask should be gray, got %s", mask.Dictionary.GetName("ColorSpace"))
	}
}
