package monitoring

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/media"
)

// Service holds runtime context for monitoring and reporting.
type Service struct {
	startedAt time.Time
}

type Snapshot struct {
	TimestampUTC        string `json:"timestamp_utc"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	HTTPActiveRequests  int64  `json:"http_active_requests"`
	HTTPTotalRequests   uint64 `json:"http_total_requests"`
	DBOpenConnections   int    `json:"db_open_connections"`
	DBInUseConnections  int    `json:"db_in_use_connections"`
	DBWaitCount         int64  `json:"db_wait_count"`
	Goroutines          int    `json:"goroutines"`
	GoMemoryAllocBytes  uint64 `json:"go_memory_alloc_bytes"`
	GoMemorySysBytes    uint64 `json:"go_memory_sys_bytes"`
	GoHeapInUseBytes    uint64 `json:"go_heap_in_use_bytes"`
	GoGCCount           uint32 `json:"go_gc_count"`
	UsersTotal          int64  `json:"users_total"`
	HobbiesTotal        int64  `json:"hobbies_total"`
	ToolsTotal          int64  `json:"tools_total"`
	UploadRequests      uint64 `json:"upload_requests"`
	UploadFailures      uint64 `json:"upload_failures"`
	UploadBytesTotal    int64  `json:"upload_bytes_total"`
	DBSizeBytes         int64  `json:"db_size_bytes"`
	UploadsSizeBytes    int64  `json:"uploads_size_bytes"`
	UploadsFilesCount   int64  `json:"uploads_files_count"`
	UploadsFSTotalBytes uint64 `json:"uploads_fs_total_bytes"`
	UploadsFSFreeBytes  uint64 `json:"uploads_fs_free_bytes"`
}

func NewService(startedAt time.Time) *Service {
	return &Service{startedAt: startedAt}
}

func (s *Service) StatusText() string {
	dbState := "ok"
	if err := database.DB.Ping(); err != nil {
		dbState = "error: " + err.Error()
	}

	uptime := time.Since(s.startedAt).Round(time.Second)
	activeHTTP, totalHTTP := getHTTPStats()
	generic := database.DB.Stats()

	return strings.Join([]string{
		"Hobbyshelf Server Status",
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("DB: %s", dbState),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
		fmt.Sprintf("DB open connections: %d", generic.OpenConnections),
		fmt.Sprintf("Go goroutines: %d", runtime.NumGoroutine()),
	}, "\n")
}

func (s *Service) StorageText() string {
	var dbSizeBytes int64
	_ = database.DB.QueryRow(`SELECT COALESCE(pg_database_size(current_database()), 0)`).Scan(&dbSizeBytes)

	uploadsDir := media.UploadsBasePath()
	uploadsBytes := dirSize(uploadsDir)
	uploadsFiles := dirFileCount(uploadsDir)
	uploadsTotal, uploadsFree := fsUsage(uploadsDir)
	uploads := getUploadStats()

	return strings.Join([]string{
		"Hobbyshelf Storage",
		fmt.Sprintf("PostgreSQL DB size: %s", formatBytes(dbSizeBytes)),
		fmt.Sprintf("Uploads folder size (%s): %s", uploadsDir, formatBytes(uploadsBytes)),
		fmt.Sprintf("Uploads files count: %d", uploadsFiles),
		fmt.Sprintf("Upload requests: %d (%d failed)", uploads.RequestsTotal, uploads.FailedTotal),
		fmt.Sprintf("Upload bytes written: %s", formatBytes(uploads.BytesTotal)),
		fmt.Sprintf("Uploads disk free: %s", formatBytes(int64(uploadsFree))),
		fmt.Sprintf("Uploads disk total: %s", formatBytes(int64(uploadsTotal))),
	}, "\n")
}

func (s *Service) UsersText() string {
	var usersTotal int64
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&usersTotal)

	var usersNew24h int64
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE created_at >= NOW() - INTERVAL '24 hours'`).Scan(&usersNew24h)

	var hobbiesTotal int64
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM hobbies`).Scan(&hobbiesTotal)

	var toolsTotal int64
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM tools`).Scan(&toolsTotal)

	return strings.Join([]string{
		"Hobbyshelf Users",
		fmt.Sprintf("Users total: %d", usersTotal),
		fmt.Sprintf("Users created in 24h: %d", usersNew24h),
		fmt.Sprintf("Hobbies total: %d", hobbiesTotal),
		fmt.Sprintf("Tools total: %d", toolsTotal),
	}, "\n")
}

func (s *Service) Snapshot() Snapshot {
	stats := database.DB.Stats()
	activeHTTP, totalHTTP := getHTTPStats()
	uploadsDir := media.UploadsBasePath()
	uploadsTotal, uploadsFree := fsUsage(uploadsDir)
	uploads := getUploadStats()

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	snap := Snapshot{
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
		HTTPActiveRequests:  activeHTTP,
		HTTPTotalRequests:   totalHTTP,
		DBOpenConnections:   stats.OpenConnections,
		DBInUseConnections:  stats.InUse,
		DBWaitCount:         int64(stats.WaitCount),
		Goroutines:          runtime.NumGoroutine(),
		GoMemoryAllocBytes:  memory.Alloc,
		GoMemorySysBytes:    memory.Sys,
		GoHeapInUseBytes:    memory.HeapInuse,
		GoGCCount:           memory.NumGC,
		UploadRequests:      uploads.RequestsTotal,
		UploadFailures:      uploads.FailedTotal,
		UploadBytesTotal:    uploads.BytesTotal,
		UploadsSizeBytes:    dirSize(uploadsDir),
		UploadsFilesCount:   dirFileCount(uploadsDir),
		UploadsFSTotalBytes: uploadsTotal,
		UploadsFSFreeBytes:  uploadsFree,
	}

	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&snap.UsersTotal)
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM hobbies`).Scan(&snap.HobbiesTotal)
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM tools`).Scan(&snap.ToolsTotal)
	_ = database.DB.QueryRow(`SELECT COALESCE(pg_database_size(current_database()), 0)`).Scan(&snap.DBSizeBytes)

	return snap
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func dirFileCount(root string) int64 {
	var count int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		count++
		return nil
	})
	return count
}

func formatBytes(value int64) string {
	const unit = 1024
	if value < unit {
		return fmt.Sprintf("%d B", value)
	}
	div, exp := int64(unit), 0
	for n := value / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(value)/float64(div), "KMGTPE"[exp])
}
