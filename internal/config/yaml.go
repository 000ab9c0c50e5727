package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func decodeYAML(data []byte, opts *Options) error {
	var probe struct {
		ConfigVersion *string `yaml:"configVersion"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	if probe.ConfigVersion == nil {
		return fmt.Errorf("missing required field: configVersion")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %v", err)
	}
	return nil
}
