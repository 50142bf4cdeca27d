package useragent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sifan077/PowerQR/internal/app/model"
)

const (
	iPhoneSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	iPadSafari    = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	androidPhone  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	androidTablet = "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	windowsChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	googlebot     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClassify_DeviceClass(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want model.DeviceClass
	}{
		{name: "iphone", ua: iPhoneSafari, want: model.DeviceMobile},
		{name: "ipad", ua: iPadSafari, want: model.DeviceTablet},
		{name: "android phone", ua: androidPhone, want: model.DeviceMobile},
		{name: "android tablet", ua: androidTablet, want: model.DeviceTablet},
		{name: "windows desktop", ua: windowsChrome, want: model.DeviceDesktop},
		{name: "bot", ua: googlebot, want: model.DeviceUnknown},
		{name: "empty", ua: "", want: model.DeviceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ua).DeviceClass; got != tt.want {
				t.Fatalf("DeviceClass = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_Labels(t *testing.T) {
	c := New().Classify(windowsChrome)
	if !strings.HasPrefix(c.Browser, "Chrome") {
		t.Fatalf("expected Chrome browser label, got %q", c.Browser)
	}
	if !strings.HasPrefix(c.OS, "Windows") {
		t.Fatalf("expected Windows OS label, got %q", c.OS)
	}

	empty := Classify("   ")
	if empty.Browser != otherLabel || empty.OS != otherLabel {
		t.Fatalf("expected Other labels for empty agent, got %+v", empty)
	}
}

func TestLabel_Truncates(t *testing.T) {
	got := label(strings.Repeat("x", 80), "1.0")
	if len(got) != maxLabelLen {
		t.Fatalf("expected label truncated to %d, got %d", maxLabelLen, len(got))
	}
}

func TestLabel_MultiByteAtLimit(t *testing.T) {
	got := label(strings.Repeat("x", maxLabelLen-1)+"é", "")
	if !utf8.ValidString(got) || len(got) != maxLabelLen-1 {
		t.Fatalf("expected valid %d byte label, got %q", maxLabelLen-1, got)
	}

	got = label("Br\xffowser", "1.0")
	if !utf8.ValidString(got) {
		t.Fatalf("expected invalid bytes replaced, got %q", got)
	}
}
