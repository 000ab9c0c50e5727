package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_UnknownConfigVersion(t *testing.T) {
	for _, name := range []string{"unknown_version.cue", "unknown_version.yaml"} {
		d := t.TempDir()
		cfg := filepath.Join(d, name)
		content := "configVersion: \"2\"\n"
		if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
			t.Fatalf("write cfg: %v", err)
		}
		_, err := Load(cfg)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		want := "unsupported configVersion: \"2\" (supported: 1)"
		if err.Error() != want {
			t.Fatalf("unexpected error\nwant: %s\n got: %s", want, err.Error())
		}
	}
}
