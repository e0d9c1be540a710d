// Package loader reads scripts from disk. CBot files are returned as they
// are; Starlark files are parsed and translated to CBot source first.
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	ExtCBot     = ".cbot"
	ExtStarlark = ".star"
)

// Load returns the CBot source of the script at path.
func Load(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return LoadReader(path, f)
}

// LoadReader is Load for an already opened script. name picks the dialect by
// its extension.
func LoadReader(name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ExtCBot, "":
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		return string(b), nil
	case ExtStarlark:
		src, err := Translate(name, r)
		if err != nil {
			return "", err
		}
		log.Debug().Str("file", name).Int("bytes", len(src)).Msg("translated starlark script")
		return src, nil
	}
	return "", fmt.Errorf("%s: unknown script extension %q", name, ext)
}
