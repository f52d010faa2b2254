package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/gaurav-prasanna/markify/core/style"
)

// fontFile names the TTF file of family in variant, e.g. "JetBrainsMono-Regular.ttf".
func fontFile(family style.FontFamily, variant string) string {
	return strings.ReplaceAll(string(family), " ", "") + "-" + variant + ".ttf"
}

// readFontFile reads one font file from dir.
func readFontFile(fs afero.Fs, dir string, family style.FontFamily, variant string) ([]byte, error) {
	name := fontFile(family, variant)
	data, err := afero.ReadFile(fs, filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("loading font %s: %w", name, err)
	}
	return data, nil
}

// fontDirAvailable fails when dir is set but missing.
func fontDirAvailable(fs afero.Fs, dir string) error {
	if dir == "" {
		return nil
	}
	ok, err := afero.DirExists(fs, dir)
	if err != nil || !ok {
		return fmt.Errorf("%w: font directory %s not found", ErrCapabilityUnavailable, dir)
	}
	return nil
}
