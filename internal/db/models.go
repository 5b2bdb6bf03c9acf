package db

import "time"

// Status of a file in the conversion index.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// FileIndex is one RAW file the watch service knows about.
type FileIndex struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FilePath   string    `gorm:"uniqueIndex" json:"file_path"`
	FileMD5    string    `gorm:"index" json:"file_md5"`
	Status     Status    `gorm:"index" json:"status"`
	OutputPath string    `json:"output_path"`
	LastError  string    `json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TaskHistory is one conversion attempt.
type TaskHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RunID       string    `gorm:"index" json:"run_id"`
	FileIndexID uint      `gorm:"index" json:"file_index_id"`
	FilePath    string    `json:"file_path"`
	Status      string    `json:"status"`
	ErrorMsg    string    `json:"error_message"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats aggregates the index by status for the API.
type Stats struct {
	TotalFiles      int64 `json:"total_files"`
	SuccessCount    int64 `json:"success_count"`
	FailedCount     int64 `json:"failed_count"`
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
}
