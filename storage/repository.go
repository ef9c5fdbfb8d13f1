package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bild-story/story"
)

// ErrNotFound indica che la storia richiesta non esiste
var ErrNotFound = errors.New("story not found")

// ErrInvalidID indica un id di storia non valido
var ErrInvalidID = errors.New("invalid story id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Summary descrive una storia salvata senza caricarla
type Summary struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	Size      int64     `json:"size"`
}

// Repository è il collaboratore di persistenza: il formato salvato è lo
// snapshot JSON del grafo
type Repository interface {
	Load(ctx context.Context, id string) (*story.Graph, error)
	Save(ctx context.Context, id string, graph *story.Graph) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// ValidateID verifica che l'id sia utilizzabile come nome file e chiave
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
