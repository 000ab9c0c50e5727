package stage

import (
	"io"
	"log/slog"
)

// Stats counts what happened to records on their way through a pipeline.
// Stages run on a single goroutine, so plain counters suffice.
type Stats struct {
	Read         int `json:"read"`
	Filtered     int `json:"filtered"`
	FilterErrors int `json:"filterErrors"`
	Dropped      int `json:"dropped"`
	UpdateErrors int `json:"updateErrors"`
	ReduceErrors int `json:"reduceErrors"`
	Emitted      int `json:"emitted"`
	EncodeErrors int `json:"encodeErrors"`
}

// LogValue renders the counters as a log group.
func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("read", s.Read),
		slog.Int("filtered", s.Filtered),
		slog.Int("filter_errors", s.FilterErrors),
		slog.Int("dropped", s.Dropped),
		slog.Int("update_errors", s.UpdateErrors),
		slog.Int("reduce_errors", s.ReduceErrors),
		slog.Int("emitted", s.Emitted),
		slog.Int("encode_errors", s.EncodeErrors),
	)
}

func orStats(s *Stats) *Stats {
	if s == nil {
		return &Stats{}
	}
	return s
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log
}
