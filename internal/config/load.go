package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a config file over the defaults. The format follows the file
// extension: .cue, .yaml or .yml.
func Load(path string) (Options, error) {
	opts := Defaults()
	if err := LoadInto(path, &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadInto overlays the fields present in the file onto opts.
func LoadInto(path string, opts *Options) error {
	ext := filepath.Ext(path)
	if ext != ".cue" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %q (expected .cue, .yaml or .yml)", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if ext == ".cue" {
		err = decodeCUE(data, opts)
	} else {
		err = decodeYAML(data, opts)
	}
	if err != nil {
		return err
	}
	return checkConfigVersion(opts.ConfigVersion)
}
