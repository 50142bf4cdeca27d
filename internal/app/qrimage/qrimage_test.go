package qrimage

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/sifan077/PowerQR/internal/app/model"
)

func TestRender_PNG(t *testing.T) {
	data, err := NewPNG().Render("https://example.com/r/AbCd1234", Options{
		Size:            256,
		ErrorCorrection: model.ErrorCorrectionHigh,
		Foreground:      "#112233",
		Background:      "#FAFAFA",
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Fatalf("expected 256x256 image, got %dx%d", b.Dx(), b.Dy())
	}

	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xFA || g>>8 != 0xFA || b>>8 != 0xFA {
		t.Fatalf("expected background color in the quiet zone, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestRender_Validation(t *testing.T) {
	r := NewPNG()
	if _, err := r.Render("", Options{}); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := r.Render("x", Options{Size: 10}); err == nil {
		t.Fatal("expected error for undersized image")
	}
	if _, err := r.Render("x", Options{Foreground: "red"}); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	got, err := ParseHexColor("#FF8000")
	if err != nil {
		t.Fatalf("ParseHexColor returned error: %v", err)
	}
	if want := (color.RGBA{R: 0xFF, G: 0x80, B: 0x00, A: 0xFF}); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	for _, bad := range []string{"", "FF8000", "#FF80", "#GG0000", "#FF80000"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestRecoveryLevel(t *testing.T) {
	cases := map[model.ErrorCorrection]qrcode.RecoveryLevel{
		model.ErrorCorrectionLow:      qrcode.Low,
		model.ErrorCorrectionMedium:   qrcode.Medium,
		model.ErrorCorrectionQuartile: qrcode.High,
		model.ErrorCorrectionHigh:     qrcode.Highest,
		"":                            qrcode.Medium,
	}
	for in, want := range cases {
		if got := RecoveryLevel(in); got != want {
			t.Fatalf("RecoveryLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
