package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"

	"github.com/estatetools/opsdash/internal/models"
)

// DefaultCacheTTL is how long a locally cached copy of the document is
// trusted before Load goes back to Drive.
const DefaultCacheTTL = 5 * time.Minute

// DriveStore persists the document as a single JSON file in the Drive root,
// with a local file cache in front of reads. The cache only serves Load; Save
// always goes to Drive first and refreshes the cache afterwards.
type DriveStore struct {
	svc       *drive.Service
	fileName  string
	cachePath string
	cacheTTL  time.Duration
	log       *zap.Logger

	fileID string
}

// NewDriveStore creates a store over an authenticated Drive service.
// cachePath may be empty to disable the local cache.
func NewDriveStore(svc *drive.Service, fileName, cachePath string, log *zap.Logger) *DriveStore {
	return &DriveStore{
		svc:       svc,
		fileName:  fileName,
		cachePath: cachePath,
		cacheTTL:  DefaultCacheTTL,
		log:       log,
	}
}

// SetCacheTTL overrides the local cache TTL. Zero disables the cache for
// reads.
func (s *DriveStore) SetCacheTTL(ttl time.Duration) {
	s.cacheTTL = ttl
}

// Load implements Store. A fresh local cache short-circuits the Drive fetch.
func (s *DriveStore) Load(ctx context.Context) (*models.Document, error) {
	if doc := s.loadCache(); doc != nil {
		return doc, nil
	}

	id, err := s.resolveFileID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}

	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", s.fileName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.fileName, err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.fileName, err)
	}
	doc.Normalize()

	s.writeCache(data)
	return &doc, nil
}

// Save implements Store. The Drive file is created on first save and updated
// in place afterwards.
func (s *DriveStore) Save(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	id, err := s.resolveFileID(ctx)
	if err != nil {
		return err
	}

	if id == "" {
		created, err := s.svc.Files.Create(&drive.File{Name: s.fileName}).
			Media(bytes.NewReader(data)).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("create %s in drive: %w", s.fileName, err)
		}
		s.fileID = created.Id
	} else {
		if _, err := s.svc.Files.Update(id, &drive.File{}).
			Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s in drive: %w", s.fileName, err)
		}
	}

	s.writeCache(data)
	s.log.Info("document_saved",
		zap.String("file", s.fileName),
		zap.Int("active", len(doc.TodoList)),
		zap.Int("trashed", len(doc.TrashBin)),
	)
	return nil
}

// Invalidate drops the local cache so the next Load fetches from Drive.
func (s *DriveStore) Invalidate() {
	if s.cachePath != "" {
		_ = os.Remove(s.cachePath)
	}
}

func (s *DriveStore) resolveFileID(ctx context.Context) (string, error) {
	if s.fileID != "" {
		return s.fileID, nil
	}
	query := fmt.Sprintf("name = '%s' and trashed = false", s.fileName)
	list, err := s.svc.Files.List().Q(query).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("locate %s in drive: %w", s.fileName, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	s.fileID = list.Files[0].Id
	return s.fileID, nil
}

func (s *DriveStore) loadCache() *models.Document {
	if s.cachePath == "" || s.cacheTTL <= 0 {
		return nil
	}
	info, err := os.Stat(s.cachePath)
	if err != nil || time.Since(info.ModTime()) >= s.cacheTTL {
		return nil
	}
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("local_cache_unreadable", zap.Error(err))
		return nil
	}
	doc.Normalize()
	s.log.Debug("document_loaded_from_cache", zap.String("path", s.cachePath))
	return &doc
}

func (s *DriveStore) writeCache(data []byte) {
	if s.cachePath == "" {
		return
	}
	if err := os.WriteFile(s.cachePath, data, 0600); err != nil {
		s.log.Warn("failed_to_write_local_cache", zap.Error(err))
	}
}
