package storage

import "time"

// Supplier holds metadata about an electricity supplier.
type Supplier struct {
	Key  string `json:"key" gorm:"primaryKey;column:key"`
	Name string `json:"name" gorm:"column:name"`
}

// PriceSnapshot stores the JSON-encoded price table in force for a supplier.
type PriceSnapshot struct {
	ID        uint      `json:"-" gorm:"primaryKey;column:id"`
	Supplier  string    `json:"supplier" gorm:"column:supplier;index"`
	Payload   []byte    `json:"payload" gorm:"column:payload"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    int       `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error,omitempty" gorm:"column:last_error"`
}

func (Supplier) TableName() string      { return "suppliers" }
func (PriceSnapshot) TableName() string { return "price_snapshots" }
func (Setting) TableName() string       { return "settings" }
func (ScheduledJob) TableName() string  { return "scheduled_jobs" }
