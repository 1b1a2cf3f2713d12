package models

import "time"

// OperationStats accumulates lifetime counters for completed operations.
// A single row with ID 1 holds the totals.
type OperationStats struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OperationsRun int64     `json:"operations_run"`
	BytesIn       int64     `json:"bytes_in"`
	BytesOut      int64     `json:"bytes_out"`
	BytesSaved    int64     `json:"bytes_saved"`
	UpdatedAt     time.Time `json:"updated_at"`
}
