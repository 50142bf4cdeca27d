package model

import "time"

// DeviceClass is the coarse device bucket derived from a user agent.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceUnknown DeviceClass = "unknown"
)

// Visit is one recorded resolution. Rows are insert-only.
type Visit struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	MappingID string `json:"mapping_id" gorm:"size:36;not null;index:idx_visits_mapping_fingerprint,priority:1;index:idx_visits_mapping_created,priority:1"`

	SourceAddress string `json:"source_address" gorm:"size:64"`
	UserAgent     string `json:"user_agent" gorm:"type:text"`
	Referer       string `json:"referer" gorm:"size:2048"`

	DeviceClass DeviceClass `json:"device_class" gorm:"size:20;not null;default:unknown"`
	Browser     string      `json:"browser" gorm:"size:50"`
	OS          string      `json:"os" gorm:"column:operating_system;size:50"`

	Success      bool   `json:"success" gorm:"not null"`
	ErrorMessage string `json:"error_message,omitempty" gorm:"type:text"`

	Fingerprint string `json:"fingerprint" gorm:"size:64;not null;index:idx_visits_mapping_fingerprint,priority:2"`
	IsUnique    bool   `json:"is_unique" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_visits_mapping_created,priority:2"`
}

func (Visit) TableName() string { return "visits" }

// LabelCount is one row of a grouped visit count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}
