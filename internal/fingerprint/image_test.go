package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestResizeImage(t *testing.T) {
	img := createTestImage(100, 100, color.White)

	resized := resizeImage(img, 32, 32)

	bounds := resized.Bounds()
	if bounds.Dx() != 32 || bounds.Dy() != 32 {
		t.Errorf("Resized image should be 32x32, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name          string
		w, h, maxSize int
		wantW, wantH  int
	}{
		{"already small", 100, 50, 200, 100, 50},
		{"landscape", 2000, 1000, 1000, 1000, 500},
		{"portrait", 1000, 2000, 1000, 500, 1000},
		{"thin strip keeps one pixel", 5000, 1, 100, 100, 1},
		{"no limit", 5000, 4000, 0, 5000, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, tt.maxSize)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitWithin(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.maxSize, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(createTestImage(400, 200, color.White), 100, 90)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if detectMIMEType(data) != "image/jpeg" {
		t.Error("output is not JPEG")
	}

	img, format, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("expected 100x50, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	if _, format, err := DecodeImage(buf.Bytes()); err != nil || format != "png" {
		t.Errorf("DecodeImage(png) = %q, %v", format, err)
	}

	if _, _, err := DecodeImage([]byte("not an image")); err == nil {
		t.Error("DecodeImage should fail for invalid image data")
	}
}
