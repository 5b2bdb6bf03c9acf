// Package api exposes the watch service's conversion index over HTTP: what
// has been converted, what failed, and a way to trigger a rescan.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tomkyle/negatives-lineartiff/internal/db"
	"github.com/tomkyle/negatives-lineartiff/internal/watcher"
	"github.com/tomkyle/negatives-lineartiff/internal/worker"
)

type Server struct {
	Router *gin.Engine
	conn   *gorm.DB
	queue  *worker.Queue
	watch  *watcher.Watcher
}

func NewServer(conn *gorm.DB, q *worker.Queue, w *watcher.Watcher) *Server {
	gin.SetMode(gin.ReleaseMode)
	g := gin.Default()
	s := &Server{Router: g, conn: conn, queue: q, watch: w}

	api := g.Group("/api")
	api.GET("/stats", s.getStats)
	api.GET("/files", s.listFiles)
	api.GET("/files/:id", s.getFile)
	api.GET("/tasks", s.listTasks)
	api.POST("/scan-now", s.scanNow)

	return s
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := db.GetStats(s.conn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	state := "running"
	if s.watch.Paused() {
		state = "paused"
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":         stats,
		"queue_len":     s.queue.Len(),
		"watcher_state": state,
	})
}

func (s *Server) listFiles(c *gin.Context) {
	q := s.conn.Model(&db.FileIndex{})
	if st := c.Query("status"); st != "" {
		q = q.Where("status = ?", st)
	}
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)

	var count int64
	q.Count(&count)
	var rows []db.FileIndex
	q.Order("updated_at desc").Limit(limit).Offset(offset).Find(&rows)
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": count})
}

func (s *Server) getFile(c *gin.Context) {
	var row db.FileIndex
	if err := s.conn.First(&row, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) listTasks(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 100)
	var rows []db.TaskHistory
	s.conn.Order("created_at desc").Limit(limit).Find(&rows)
	c.JSON(http.StatusOK, rows)
}

func (s *Server) scanNow(c *gin.Context) {
	go func() {
		if err := s.watch.ScanAll(context.Background()); err != nil {
			// context cancellation during shutdown, nothing to report
			return
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "scanning"})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
