package models

import "gorm.io/datatypes"

// AuditLog records a single account lifecycle event.
type AuditLog struct {
	BaseModel

	AccountID *string        `gorm:"type:uuid;index" json:"account_id"`
	Email     string         `gorm:"index" json:"email"`
	Action    string         `gorm:"not null;index" json:"action"`
	Result    string         `gorm:"not null" json:"result"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
}
