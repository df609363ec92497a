package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
	applogger "HistPull/pkg/logger"
	"HistPull/pkg/util"
)

// FileStore keeps each series as a pretty-printed JSON array at
// <dataDir>/<source>/<symbol>.json. The file doubles as the checkpoint: its
// last entry is where the next run resumes.
type FileStore struct {
	dataDir string
	log     *applogger.Logger
}

func NewFileStore(dataDir string, log *applogger.Logger) drepo.SeriesStore {
	if log == nil {
		log = applogger.Nop()
	}
	return &FileStore{dataDir: dataDir, log: log}
}

func (s *FileStore) path(source, symbol string) string {
	return filepath.Join(s.dataDir, source, util.SanitizeSymbol(symbol)+".json")
}

// Load reads the stored series. A missing file means the symbol was never
// collected. A file that fails to parse is dropped and reported absent, which
// sends the symbol back through a fresh collection.
func (s *FileStore) Load(_ context.Context, source, symbol string) ([]models.Observation, error) {
	path := s.path(source, symbol)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read series %s: %w", path, err)
	}

	var series []models.Observation
	if err := json.Unmarshal(data, &series); err != nil {
		s.log.Warn("discarding corrupt series file",
			applogger.String("path", path),
			applogger.Error(err))
		_ = os.Remove(path)
		return nil, nil
	}
	return series, nil
}

// Save writes the whole series through a temp file and rename, so a crash
// mid-write never leaves a truncated checkpoint behind.
func (s *FileStore) Save(_ context.Context, source, symbol string, series []models.Observation) error {
	path := s.path(source, symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create series dir: %w", err)
	}

	data, err := json.MarshalIndent(series, "", "    ")
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write series: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace series file: %w", err)
	}
	return nil
}
