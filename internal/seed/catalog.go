// Package seed loads the credit-pack and artist catalog into the database.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed default_catalog.toml
var defaultCatalog string

type Catalog struct {
	Packs   []PackEntry   `toml:"pack"`
	Artists []ArtistEntry `toml:"artist"`
}

// PackEntry.Variants maps provider name to the provider's product or variant id.
type PackEntry struct {
	ID       string            `toml:"id"`
	Name     string            `toml:"name"`
	Credits  int64             `toml:"credits"`
	Active   *bool             `toml:"active"`
	Variants map[string]string `toml:"variants"`
}

type ArtistEntry struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	Style     string `toml:"style"`
	Active    *bool  `toml:"active"`
	SortOrder int    `toml:"sort_order"`
}

// LoadCatalog decodes path, falling back to the built-in catalog when path is
// empty or missing. Unknown keys are rejected so typos don't silently drop
// bindings.
func LoadCatalog(path string) (*Catalog, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return decodeDefault()
	}

	var catalog Catalog
	meta, err := toml.DecodeFile(path, &catalog)
	if errors.Is(err, fs.ErrNotExist) {
		return decodeDefault()
	}
	if err != nil {
		return nil, path, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, path, fmt.Errorf("catalog %s: unknown key %s", path, undecoded[0].String())
	}
	return &catalog, path, nil
}

func decodeDefault() (*Catalog, string, error) {
	var catalog Catalog
	if _, err := toml.Decode(defaultCatalog, &catalog); err != nil {
		return nil, "builtin", err
	}
	return &catalog, "builtin", nil
}
