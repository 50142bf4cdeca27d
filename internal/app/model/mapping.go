package model

import "time"

// Kind distinguishes codes that embed the destination from codes routed through the redirector.
type Kind string

const (
	KindStatic  Kind = "static"
	KindDynamic Kind = "dynamic"
)

// Status is the owner-controlled lifecycle state of a mapping.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusExpired Status = "expired"
)

// ErrorCorrection is one of the four QR recovery levels, lowest to highest.
type ErrorCorrection string

const (
	ErrorCorrectionLow      ErrorCorrection = "L"
	ErrorCorrectionMedium   ErrorCorrection = "M"
	ErrorCorrectionQuartile ErrorCorrection = "Q"
	ErrorCorrectionHigh     ErrorCorrection = "H"
)

const (
	DefaultSize            = 300
	DefaultForegroundColor = "#000000"
	DefaultBackgroundColor = "#FFFFFF"
	MaxDestinationLength   = 2048
	MaxShortCodeLength     = 20
)

// Mapping associates a short code with a destination plus its access policy and cached stats.
// TotalScans, UniqueScans and LastScannedAt are maintained by the visit repository only.
type Mapping struct {
	ID      string `json:"id" gorm:"primaryKey;size:36"`
	OwnerID string `json:"owner_id" gorm:"size:64;not null;index:idx_mappings_owner_created,priority:1"`
	Name    string `json:"name" gorm:"size:255;not null"`
	Kind    Kind   `json:"kind" gorm:"size:10;not null;default:dynamic"`

	Destination string  `json:"destination" gorm:"size:2048;not null"`
	ShortCode   *string `json:"short_code,omitempty" gorm:"size:20;uniqueIndex"`

	Size            int             `json:"size" gorm:"not null;default:300"`
	ErrorCorrection ErrorCorrection `json:"error_correction" gorm:"size:1;not null;default:M"`
	ForegroundColor string          `json:"foreground_color" gorm:"size:7;not null;default:#000000"`
	BackgroundColor string          `json:"background_color" gorm:"size:7;not null;default:#FFFFFF"`

	Status       Status     `json:"status" gorm:"size:10;not null;default:active;index"`
	MaxScans     *int64     `json:"max_scans,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" gorm:"index"`
	PasswordHash string     `json:"-" gorm:"size:128"`

	Description string `json:"description" gorm:"type:text"`
	Tags        string `json:"tags" gorm:"size:255"`

	TotalScans    int64      `json:"total_scans" gorm:"not null;default:0"`
	UniqueScans   int64      `json:"unique_scans" gorm:"not null;default:0"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_mappings_owner_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Mapping) TableName() string { return "mappings" }

// HasPassword reports whether resolution goes through the password gate.
func (m *Mapping) HasPassword() bool {
	return m.PasswordHash != ""
}

// Code returns the short code or an empty string for static mappings.
func (m *Mapping) Code() string {
	if m.ShortCode == nil {
		return ""
	}
	return *m.ShortCode
}
