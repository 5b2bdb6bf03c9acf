// Package db keeps the conversion index and task history in SQLite. The
// index lets the watch service skip files it already converted (matched by
// path and MD5); the history records every attempt with timing.
package db

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens (or creates) the SQLite database and migrates the schema.
func Init(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := conn.AutoMigrate(&FileIndex{}, &TaskHistory{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

// UpsertIndex records path with its current MD5. changed is true when the
// file is new or its content differs from the last successful conversion,
// meaning it needs (re)converting.
func UpsertIndex(conn *gorm.DB, path, md5 string) (*FileIndex, bool, error) {
	var rec FileIndex
	err := conn.Where("file_path = ?", path).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = FileIndex{FilePath: path, FileMD5: md5, Status: StatusPending}
		if err := conn.Create(&rec).Error; err != nil {
			return nil, false, err
		}
		return &rec, true, nil
	case err != nil:
		return nil, false, err
	}

	if rec.Status == StatusSuccess && rec.FileMD5 == md5 {
		return &rec, false, nil
	}
	rec.FileMD5 = md5
	rec.Status = StatusPending
	rec.LastError = ""
	if err := conn.Save(&rec).Error; err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// SetStatus updates one index row's status, optionally with an error text.
func SetStatus(conn *gorm.DB, id uint, status Status, lastErr string) error {
	return conn.Model(&FileIndex{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "last_error": lastErr}).Error
}

// MarkSuccess records a completed conversion and where its output landed.
func MarkSuccess(conn *gorm.DB, id uint, outputPath string) error {
	return conn.Model(&FileIndex{}).Where("id = ?", id).
		Updates(map[string]any{"status": StatusSuccess, "output_path": outputPath, "last_error": ""}).Error
}

// InsertTaskHistory appends one attempt record.
func InsertTaskHistory(conn *gorm.DB, h *TaskHistory) error {
	return conn.Create(h).Error
}

// GetStats aggregates index counts per status.
func GetStats(conn *gorm.DB) (Stats, error) {
	var s Stats
	if err := conn.Model(&FileIndex{}).Count(&s.TotalFiles).Error; err != nil {
		return s, err
	}
	counts := []struct {
		status Status
		dst    *int64
	}{
		{StatusSuccess, &s.SuccessCount},
		{StatusFailed, &s.FailedCount},
		{StatusPending, &s.PendingCount},
		{StatusProcessing, &s.ProcessingCount},
	}
	for _, c := range counts {
		if err := conn.Model(&FileIndex{}).Where("status = ?", c.status).Count(c.dst).Error; err != nil {
			return s, err
		}
	}
	return s, nil
}
