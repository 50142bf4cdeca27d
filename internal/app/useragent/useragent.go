// Package useragent turns a raw User-Agent header into device, browser and OS labels.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/sifan077/PowerQR/internal/app/model"
)

const (
	otherLabel  = "Other"
	maxLabelLen = 50
)

// Classification is the structured view of a user agent.
type Classification struct {
	DeviceClass model.DeviceClass
	Browser     string
	OS          string
}

// Classifier turns raw user agents into classifications.
type Classifier interface {
	Classify(raw string) Classification
}

type parser struct{}

// New returns the default Classifier.
func New() Classifier {
	return parser{}
}

func (parser) Classify(raw string) Classification {
	return Classify(raw)
}

// Classify parses raw. An empty agent yields an unknown device with Other labels.
func Classify(raw string) Classification {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Classification{DeviceClass: model.DeviceUnknown, Browser: otherLabel, OS: otherLabel}
	}

	ua := useragent.New(raw)

	name, version := ua.Browser()
	osInfo := ua.OSInfo()

	return Classification{
		DeviceClass: deviceClass(ua, raw),
		Browser:     label(name, version),
		OS:          label(osInfo.Name, osInfo.Version),
	}
}

func deviceClass(ua *useragent.UserAgent, raw string) model.DeviceClass {
	switch {
	case ua.Bot():
		return model.DeviceUnknown
	case isTablet(raw):
		return model.DeviceTablet
	case ua.Mobile():
		return model.DeviceMobile
	case isDesktop(raw):
		return model.DeviceDesktop
	default:
		return model.DeviceUnknown
	}
}

// Tablets report themselves as mobile in most parsers, so they are matched first.
func isTablet(raw string) bool {
	switch {
	case strings.Contains(raw, "iPad"), strings.Contains(raw, "Tablet"), strings.Contains(raw, "Kindle"):
		return true
	case strings.Contains(raw, "Android") && !strings.Contains(raw, "Mobile"):
		return true
	default:
		return false
	}
}

func isDesktop(raw string) bool {
	for _, marker := range []string{"Windows NT", "Macintosh", "X11", "CrOS"} {
		if strings.Contains(raw, marker) {
			return true
		}
	}
	return false
}

func label(name, version string) string {
	l := strings.TrimSpace(name + " " + version)
	if l == "" {
		return otherLabel
	}
	return model.Clip(l, maxLabelLen)
}
