package models

// Meeting is a row of the meetings table. Timestamps are persisted as
// RFC3339 text with the zone offset included, so stored values round-trip
// losslessly and order lexicographically within a fixed-offset zone.
type Meeting struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	ChatID      int64   `gorm:"index;not null"`
	Title       string  `gorm:"not null"`
	Description string
	StartTS     string  `gorm:"column:start_ts;not null"`
	EndTS       *string `gorm:"column:end_ts"`
	CreatedTS   string  `gorm:"column:created_at;not null"`
}

func (Meeting) TableName() string {
	return "meetings"
}
