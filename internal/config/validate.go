package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flarebyte/json2seq/internal/script"
	"github.com/flarebyte/json2seq/internal/source"
	"github.com/flarebyte/json2seq/internal/stage"
)

// Validate checks the options and normalizes empty policies to strict. All
// problems are reported together.
func Validate(o *Options) error {
	var errs []error
	if err := checkConfigVersion(o.ConfigVersion); err != nil {
		errs = append(errs, err)
	}
	if _, err := source.ParseSelector(o.Select); err != nil {
		errs = append(errs, fmt.Errorf("select: %w", err))
	}
	if err := script.CheckEngine(o.Engine); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	for _, p := range []struct {
		name string
		val  *string
	}{
		{"filter.onError", &o.Filter.OnError},
		{"update.onError", &o.Update.OnError},
		{"reduce.onError", &o.Reduce.OnError},
	} {
		pol, err := stage.ParsePolicy(*p.val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
			continue
		}
		*p.val = string(pol)
	}
	for i, s := range o.Filter.Scripts {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("filter.scripts[%d]: empty script", i))
		}
	}
	for i, s := range o.Update.Scripts {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("update.scripts[%d]: empty script", i))
		}
	}
	if o.Window.Skip < 0 {
		errs = append(errs, fmt.Errorf("window.skip: must be >= 0, got %d", o.Window.Skip))
	}
	if o.Window.First != nil && *o.Window.First < 0 {
		errs = append(errs, fmt.Errorf("window.first: must be >= 0, got %d", *o.Window.First))
	}
	if o.Lua.TimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("lua.timeoutMs: must be >= 0, got %d", o.Lua.TimeoutMs))
	}
	return errors.Join(errs...)
}
