package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backend supportati
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config raccoglie la configurazione del server, letta dalle variabili BILD_*
type Config struct {
	Addr        string        `env:"BILD_ADDR" envDefault:":8080"`
	Debug       bool          `env:"BILD_DEBUG" envDefault:"false"`
	Storage     string        `env:"BILD_STORAGE" envDefault:"file"`
	StoriesDir  string        `env:"BILD_STORIES_DIR" envDefault:"./stories"`
	SQLitePath  string        `env:"BILD_SQLITE_PATH" envDefault:"./bild.db"`
	Watch       bool          `env:"BILD_WATCH" envDefault:"true"`
	Debounce    time.Duration `env:"BILD_WATCH_DEBOUNCE" envDefault:"300ms"`
	CORSOrigins []string      `env:"BILD_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	PublicURL   string        `env:"BILD_PUBLIC_URL" envDefault:"http://localhost:8080/"`
	Dialect     string        `env:"BILD_DIALECT" envDefault:"bild"`

	// StrictTargets trasforma i target pendenti in errori invece di tornare alla prima scena
	StrictTargets bool          `env:"BILD_STRICT_TARGETS" envDefault:"false"`
	PreviewTTL    time.Duration `env:"BILD_PREVIEW_TTL" envDefault:"30m"`

	// Export abilita la compilazione del player (richiede il toolchain go)
	Export       bool   `env:"BILD_EXPORT" envDefault:"true"`
	PlayerSource string `env:"BILD_PLAYER_SOURCE" envDefault:"./cmd/storyplayer"`
	ExportDir    string `env:"BILD_EXPORT_DIR" envDefault:"./exports"`
}

// Load legge la configurazione dall'ambiente
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate verifica i valori che env non può controllare
func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("invalid BILD_STORAGE %q (expected %q or %q)", c.Storage, StorageFile, StorageSQLite)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("invalid BILD_WATCH_DEBOUNCE %s", c.Debounce)
	}
	if c.PreviewTTL <= 0 {
		return fmt.Errorf("invalid BILD_PREVIEW_TTL %s", c.PreviewTTL)
	}
	return nil
}
