// Package qrimage renders mapping payloads as PNG QR codes.
package qrimage

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/sifan077/PowerQR/internal/app/model"
)

const (
	MinSize = 64
	MaxSize = 2048
)

// ErrInvalidColor is returned for colors that are not #RRGGBB.
var ErrInvalidColor = errors.New("color must be in #RRGGBB format")

// Options controls how a code is drawn.
type Options struct {
	Size            int
	ErrorCorrection model.ErrorCorrection
	Foreground      string
	Background      string
}

// Renderer renders QR images. Only download and preview paths call it.
type Renderer interface {
	Render(data string, opts Options) ([]byte, error)
}

type pngRenderer struct{}

// NewPNG returns a Renderer producing PNG bytes.
func NewPNG() Renderer {
	return pngRenderer{}
}

func (pngRenderer) Render(data string, opts Options) ([]byte, error) {
	if data == "" {
		return nil, errors.New("qrimage: empty payload")
	}

	size := opts.Size
	if size == 0 {
		size = model.DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("qrimage: size %d outside [%d, %d]", size, MinSize, MaxSize)
	}

	fg, err := ParseHexColor(defaultString(opts.Foreground, model.DefaultForegroundColor))
	if err != nil {
		return nil, fmt.Errorf("qrimage: foreground: %w", err)
	}
	bg, err := ParseHexColor(defaultString(opts.Background, model.DefaultBackgroundColor))
	if err != nil {
		return nil, fmt.Errorf("qrimage: background: %w", err)
	}

	q, err := qrcode.New(data, RecoveryLevel(opts.ErrorCorrection))
	if err != nil {
		return nil, fmt.Errorf("qrimage: encode: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg

	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("qrimage: png: %w", err)
	}
	return png, nil
}

// RecoveryLevel maps L/M/Q/H onto the encoder levels. Unknown values fall back to M.
func RecoveryLevel(level model.ErrorCorrection) qrcode.RecoveryLevel {
	switch level {
	case model.ErrorCorrectionLow:
		return qrcode.Low
	case model.ErrorCorrectionQuartile:
		return qrcode.High
	case model.ErrorCorrectionHigh:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// ParseHexColor parses #RRGGBB.
func ParseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return color.RGBA{}, ErrInvalidColor
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, ErrInvalidColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
