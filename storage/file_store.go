package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"bild-story/snapshot"
	"bild-story/story"
)

// Extension è l'estensione dei file storia
const Extension = ".json"

// FileStore salva ogni storia in <dir>/<id>.json
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore crea la directory se non esiste
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir restituisce la directory delle storie
func (s *FileStore) Dir() string { return s.dir }

// Path restituisce il percorso del file di una storia
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+Extension)
}

// IDFromPath ricava l'id da un percorso di file storia
func IDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, Extension) {
		return "", false
	}
	id := strings.TrimSuffix(base, Extension)
	return id, ValidateID(id) == nil
}

// Load legge e decodifica una storia
func (s *FileStore) Load(_ context.Context, id string) (*story.Graph, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read story %s: %w", id, err)
	}
	graph, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", id, err)
	}
	return graph, nil
}

// Save scrive la storia in modo atomico (file temporaneo + rename)
func (s *FileStore) Save(_ context.Context, id string, graph *story.Graph) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := snapshot.EncodeIndent(graph)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write story %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close story %s: %w", id, err)
	}
	if err := os.Rename(tmpName, s.Path(id)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename story %s: %w", id, err)
	}

	s.logger.Debug("storia salvata", zap.String("id", id), zap.Int("bytes", len(data)))
	return nil
}

// List elenca le storie presenti nella directory, ordinate per id
func (s *FileStore) List(_ context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	out := []Summary{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := IDFromPath(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Summary{ID: id, UpdatedAt: info.ModTime().UTC(), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete rimuove una storia
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete story %s: %w", id, err)
	}
	return nil
}

// Close non ha risorse da rilasciare
func (s *FileStore) Close() error { return nil }
