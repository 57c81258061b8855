package models

import "time"

// StateSnapshot stores one persisted client state document.
type StateSnapshot struct {
	Key       string     `gorm:"column:snapshot_key;primaryKey;type:varchar(255)"`
	Payload   string     `gorm:"column:payload;type:text;not null"`
	Version   int64      `gorm:"column:version;not null;default:1"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (StateSnapshot) TableName() string { return "state_snapshots" }
