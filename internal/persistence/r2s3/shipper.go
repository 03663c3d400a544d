package r2s3

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type putter interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

type ShipperStats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	ShippedTotal    uint64 `json:"shipped_total"`
	FailedTotal     uint64 `json:"failed_total"`
	DroppedTotal    uint64 `json:"dropped_total"`
	LastSuccessUnix int64  `json:"last_success_unix"`
	LastErrorUnix   int64  `json:"last_error_unix"`
}

// Shipper uploads closed journal files in the background. Object keys mirror
// the file's path below dataDir, under an optional prefix.
type Shipper struct {
	client  putter
	dataDir string
	prefix  string
	logger  *log.Logger
	backoff time.Duration

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	shipped     atomic.Uint64
	failed      atomic.Uint64
	dropped     atomic.Uint64
	lastSuccess atomic.Int64
	lastError   atomic.Int64
}

func NewShipper(client putter, dataDir, prefix string, queueCapacity int, logger *log.Logger) *Shipper {
	if queueCapacity <= 0 {
		queueCapacity = 256
	}
	s := &Shipper{
		client:  client,
		dataDir: dataDir,
		prefix:  strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		logger:  logger,
		backoff: 200 * time.Millisecond,
		jobs:    make(chan string, queueCapacity),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for p := range s.jobs {
			s.ship(p)
		}
	}()
	return s
}

// Enqueue schedules localPath for upload. It never blocks; a full queue
// drops the file, which stays on local disk.
func (s *Shipper) Enqueue(localPath string) {
	if s == nil {
		return
	}
	select {
	case s.jobs <- localPath:
	default:
		n := s.dropped.Add(1)
		s.printf("journal ship drop local=%s dropped_total=%d", localPath, n)
	}
}

// Close uploads what is queued and stops.
func (s *Shipper) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.jobs)
		s.wg.Wait()
	})
}

func (s *Shipper) Stats() ShipperStats {
	if s == nil {
		return ShipperStats{}
	}
	return ShipperStats{
		QueueDepth:      len(s.jobs),
		QueueCapacity:   cap(s.jobs),
		ShippedTotal:    s.shipped.Load(),
		FailedTotal:     s.failed.Load(),
		DroppedTotal:    s.dropped.Load(),
		LastSuccessUnix: s.lastSuccess.Load(),
		LastErrorUnix:   s.lastError.Load(),
	}
}

func (s *Shipper) ship(localPath string) {
	key, err := s.objectKey(localPath)
	if err != nil {
		s.failed.Add(1)
		s.printf("journal ship skip local=%s err=%v", localPath, err)
		return
	}
	const maxAttempts = 4
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = s.client.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			s.shipped.Add(1)
			s.lastSuccess.Store(time.Now().UTC().Unix())
			s.printf("journal shipped key=%s", key)
			return
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * s.backoff)
		}
	}
	s.failed.Add(1)
	s.lastError.Store(time.Now().UTC().Unix())
	s.printf("journal ship failed key=%s err=%v", key, err)
}

func (s *Shipper) objectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(s.dataDir)
	if err != nil {
		return "", err
	}
	absLocal, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absLocal)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside data dir %s", absLocal, absBase)
	}
	if s.prefix != "" {
		return path.Join(s.prefix, rel), nil
	}
	return rel, nil
}

func (s *Shipper) printf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
