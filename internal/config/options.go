package config

import (
	"time"

	"github.com/flarebyte/json2seq/internal/script"
	"github.com/flarebyte/json2seq/internal/seqenc"
	"github.com/flarebyte/json2seq/internal/stage"
)

// Options is the complete, effective configuration of one conversion.
type Options struct {
	ConfigVersion string       `json:"configVersion" yaml:"configVersion"`
	Select        string       `json:"select" yaml:"select"`
	Engine        string       `json:"engine" yaml:"engine"`
	Filter        StageScripts `json:"filter" yaml:"filter"`
	Update        StageScripts `json:"update" yaml:"update"`
	Reduce        ReduceScript `json:"reduce" yaml:"reduce"`
	Window        Window       `json:"window" yaml:"window"`
	Output        Output       `json:"output" yaml:"output"`
	Lua           Lua          `json:"lua" yaml:"lua"`
}

// StageScripts configures a stage made of several scripts.
type StageScripts struct {
	Scripts []string `json:"scripts" yaml:"scripts"`
	OnError string   `json:"onError" yaml:"onError"`
}

// ReduceScript configures the optional fold.
type ReduceScript struct {
	Script  string `json:"script" yaml:"script"`
	OnError string `json:"onError" yaml:"onError"`
}

// Window holds the skip/first bounds. First is nil when unbounded.
type Window struct {
	Skip  int  `json:"skip" yaml:"skip"`
	First *int `json:"first,omitempty" yaml:"first,omitempty"`
}

// Output configures where and how records are written.
type Output struct {
	// Path is the output file; empty or "-" means stdout.
	Path        string `json:"path" yaml:"path"`
	RSDelimiter bool   `json:"rsDelimiter" yaml:"rsDelimiter"`
	EnsureASCII bool   `json:"ensureAscii" yaml:"ensureAscii"`
}

// Lua holds the script sandbox settings. TimeoutMs of zero disables the
// per-evaluation timeout.
type Lua struct {
	TimeoutMs           int         `json:"timeoutMs" yaml:"timeoutMs"`
	DeterministicRandom bool        `json:"deterministicRandom" yaml:"deterministicRandom"`
	Libs                script.Libs `json:"libs" yaml:"libs"`
}

// Defaults returns the options used when neither a file nor a flag says
// otherwise.
func Defaults() Options {
	return Options{
		ConfigVersion: CurrentConfigVersion,
		Select:        "item",
		Engine:        script.EngineLua,
		Filter:        StageScripts{OnError: string(stage.Strict)},
		Update:        StageScripts{OnError: string(stage.Strict)},
		Reduce:        ReduceScript{OnError: string(stage.Strict)},
		Lua: Lua{
			DeterministicRandom: true,
			Libs:                script.Libs{Base: true, Table: true, String: true, Math: true},
		},
	}
}

// ScriptTimeout returns the per-evaluation timeout.
func (o Options) ScriptTimeout() time.Duration {
	return time.Duration(o.Lua.TimeoutMs) * time.Millisecond
}

// Encoder returns the sequence encoder options.
func (o Options) Encoder() seqenc.Options {
	return seqenc.Options{RS: o.Output.RSDelimiter, EnsureASCII: o.Output.EnsureASCII}
}

// Pipeline converts validated options into the stage configuration.
func (o Options) Pipeline() stage.Config {
	return stage.Config{
		Filters:      o.Filter.Scripts,
		FilterPolicy: stage.ErrorPolicy(o.Filter.OnError),
		Updates:      o.Update.Scripts,
		UpdatePolicy: stage.ErrorPolicy(o.Update.OnError),
		Reduce:       o.Reduce.Script,
		ReducePolicy: stage.ErrorPolicy(o.Reduce.OnError),
		Skip:         o.Window.Skip,
		First:        o.Window.First,
		Engine:       o.Engine,
		Script: &script.Options{
			Timeout:             o.ScriptTimeout(),
			Libs:                o.Lua.Libs,
			DeterministicRandom: o.Lua.DeterministicRandom,
		},
	}
}
