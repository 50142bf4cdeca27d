package service

import (
	"net/url"
	"strings"

	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/qrimage"
)

const (
	maxNameLength = 255
	maxTagsLength = 255
)

func validateDestination(raw string) error {
	if raw == "" {
		return invalidf("destination is required")
	}
	if len(raw) > model.MaxDestinationLength {
		return invalidf("destination must be at most %d characters", model.MaxDestinationLength)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return invalidf("destination must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidf("destination scheme must be http or https")
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidf("name is required")
	}
	if len(name) > maxNameLength {
		return invalidf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

func validateKind(kind model.Kind) error {
	switch kind {
	case model.KindStatic, model.KindDynamic:
		return nil
	default:
		return invalidf("kind must be %q or %q", model.KindStatic, model.KindDynamic)
	}
}

func validateStatus(status model.Status) error {
	switch status {
	case model.StatusActive, model.StatusPaused, model.StatusExpired:
		return nil
	default:
		return invalidf("unknown status %q", status)
	}
}

func validateAppearance(m *model.Mapping) error {
	if m.Size < qrimage.MinSize || m.Size > qrimage.MaxSize {
		return invalidf("size must be between %d and %d", qrimage.MinSize, qrimage.MaxSize)
	}
	switch m.ErrorCorrection {
	case model.ErrorCorrectionLow, model.ErrorCorrectionMedium, model.ErrorCorrectionQuartile, model.ErrorCorrectionHigh:
	default:
		return invalidf("error_correction must be one of L, M, Q, H")
	}
	if _, err := qrimage.ParseHexColor(m.ForegroundColor); err != nil {
		return invalidf("foreground_color: %v", err)
	}
	if _, err := qrimage.ParseHexColor(m.BackgroundColor); err != nil {
		return invalidf("background_color: %v", err)
	}
	return nil
}

func validateMapping(m *model.Mapping) error {
	if err := validateName(m.Name); err != nil {
		return err
	}
	if err := validateKind(m.Kind); err != nil {
		return err
	}
	if err := validateDestination(m.Destination); err != nil {
		return err
	}
	if err := validateStatus(m.Status); err != nil {
		return err
	}
	if err := validateAppearance(m); err != nil {
		return err
	}
	if m.MaxScans != nil && *m.MaxScans < 0 {
		return invalidf("max_scans must not be negative")
	}
	if len(m.Tags) > maxTagsLength {
		return invalidf("tags must be at most %d characters", maxTagsLength)
	}
	return nil
}
