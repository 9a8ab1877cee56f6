package server

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path/filepath"

	"semtok/internal/config"
	"semtok/internal/grammar"
	"semtok/internal/highlight"
	"semtok/internal/store"
	"semtok/internal/store/sqlite"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// StateStore places the snapshot database in the user's state directory,
// one database per workspace root.
const StateStore = "state"

// NewProvider builds an uninitialized provider for cfg. Query files are read
// from fs.
func NewProvider(cfg config.Config, fs afero.Fs) (*highlight.Provider, error) {
	l, err := cfg.Legend()
	if err != nil {
		return nil, err
	}

	langs := make([]highlight.Language, 0, len(cfg.Languages))
	for _, lc := range cfg.Languages {
		b, ok := grammar.Lookup(lc.GrammarName())
		if !ok {
			return nil, errors.WithDetails(highlight.ErrUnknownGrammar, "grammar", lc.GrammarName())
		}
		lang := highlight.Language{
			Name:      lc.Name,
			Globs:     lc.Globs,
			Language:  b.Language,
			Query:     []byte(lc.Query),
			QueryFile: lc.QueryFile,
		}
		if lc.Query == "" && lc.QueryFile == "" {
			lang.Query = []byte(b.Query)
		}
		langs = append(langs, lang)
	}

	return highlight.New(highlight.Options{
		Legend:    l,
		Languages: langs,
		Strict:    cfg.Strict,
		Parsers:   cfg.Parsers,
		Fs:        fs,
	}), nil
}

// OpenStore opens the snapshot store cfg asks for. root is the workspace
// root URI and only matters for StateStore.
func OpenStore(cfg config.Config, root string) (store.Store, error) {
	switch cfg.Store {
	case config.MemoryStore:
		return store.NewMemory(), nil
	case StateStore:
		dir, err := stateDir(root)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(filepath.Join(dir, "snapshots.db"))
	default:
		return sqlite.Open(cfg.Store)
	}
}

func stateDir(root string) (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}

	dir := filepath.Join(base, Name)
	if root != "" {
		sum := sha256.Sum256([]byte(root))
		name := hex.EncodeToString(sum[:8])
		if u, err := url.Parse(root); err == nil && u.Path != "" {
			name = filepath.Base(u.Path) + "-" + name
		}
		dir = filepath.Join(dir, name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}
