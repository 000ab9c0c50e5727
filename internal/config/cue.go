package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func decodeCUE(data []byte, opts *Options) error {
	v := cuecontext.New().CompileBytes(data)
	if err := v.Err(); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return err
	}
	fields := []struct {
		path string
		kind cue.Kind
		dst  any
	}{
		{"configVersion", cue.StringKind, &opts.ConfigVersion},
		{"select", cue.StringKind, &opts.Select},
		{"engine", cue.StringKind, &opts.Engine},
		{"filter.scripts", cue.ListKind, &opts.Filter.Scripts},
		{"filter.onError", cue.StringKind, &opts.Filter.OnError},
		{"update.scripts", cue.ListKind, &opts.Update.Scripts},
		{"update.onError", cue.StringKind, &opts.Update.OnError},
		{"reduce.script", cue.StringKind, &opts.Reduce.Script},
		{"reduce.onError", cue.StringKind, &opts.Reduce.OnError},
		{"window.skip", cue.IntKind, &opts.Window.Skip},
		{"output.path", cue.StringKind, &opts.Output.Path},
		{"output.rsDelimiter", cue.BoolKind, &opts.Output.RSDelimiter},
		{"output.ensureAscii", cue.BoolKind, &opts.Output.EnsureASCII},
		{"lua.timeoutMs", cue.IntKind, &opts.Lua.TimeoutMs},
		{"lua.deterministicRandom", cue.BoolKind, &opts.Lua.DeterministicRandom},
		{"lua.libs.base", cue.BoolKind, &opts.Lua.Libs.Base},
		{"lua.libs.table", cue.BoolKind, &opts.Lua.Libs.Table},
		{"lua.libs.string", cue.BoolKind, &opts.Lua.Libs.String},
		{"lua.libs.math", cue.BoolKind, &opts.Lua.Libs.Math},
	}
	for _, f := range fields {
		if err := decodeField(v, f.path, f.kind, f.dst); err != nil {
			return err
		}
	}
	fv := v.LookupPath(cuePath("window.first"))
	if fv.Exists() {
		var first int
		if err := decodeField(v, "window.first", cue.IntKind, &first); err != nil {
			return err
		}
		opts.Window.First = &first
	}
	return nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cuePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// decodeField decodes the value at path into dst when present. Absent
// fields leave dst untouched.
func decodeField(v cue.Value, path string, kind cue.Kind, dst any) error {
	f := v.LookupPath(cuePath(path))
	if !f.Exists() {
		return nil
	}
	if f.Kind() != kind {
		return fmt.Errorf("invalid type for field: %s (expected %s)", path, kind)
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", path, err)
	}
	return nil
}

// cuePath builds a path of regular labels, so keys that collide with CUE
// predeclared identifiers (string, int) still resolve.
func cuePath(dotted string) cue.Path {
	var sels []cue.Selector
	for _, label := range strings.Split(dotted, ".") {
		sels = append(sels, cue.Str(label))
	}
	return cue.MakePath(sels...)
}
