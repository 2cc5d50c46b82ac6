package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the project manifest file name.
const ManifestName = "flint.toml"

// Manifest is a located and parsed flint.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
}

type PackageConfig struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

type BuildConfig struct {
	Jobs     int    `toml:"jobs"`
	CacheDir string `toml:"cache_dir"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest ищет flint.toml вверх от startDir и парсит его.
// Возвращает (nil, false, nil), если манифеста нет — это не ошибка.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, true, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, true, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, true, fmt.Errorf("%s: missing [package].name", path)
	}
	if !meta.IsDefined("package", "entry") || strings.TrimSpace(cfg.Package.Entry) == "" {
		return nil, true, fmt.Errorf("%s: missing [package].entry", path)
	}
	if !IsValidModuleIdent(cfg.Package.Name) {
		return nil, true, fmt.Errorf("%s: [package].name is not a valid identifier", path)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// EntryFile returns the absolute path of the manifest's entry module.
func (m *Manifest) EntryFile() (string, error) {
	entry := strings.TrimSpace(m.Config.Package.Entry)
	path := filepath.Join(m.Root, filepath.FromSlash(entry))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: [package].entry path does not exist: %s", m.Path, path)
		}
		return "", fmt.Errorf("%s: failed to stat [package].entry: %w", m.Path, err)
	}
	if info.IsDir() || filepath.Ext(path) != SourceExt {
		return "", fmt.Errorf("%s: [package].entry must be a %s file", m.Path, SourceExt)
	}
	return path, nil
}
