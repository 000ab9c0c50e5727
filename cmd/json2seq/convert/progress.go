package convert

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/flarebyte/json2seq/internal/stage"
)

const progressInterval = 500 * time.Millisecond

type emittedCounter interface {
	Written() int
}

// progressReporter prints "progress stage=convert read=N emitted=M" lines,
// at most one per interval, plus a final line when the run ends.
type progressReporter struct {
	enabled   bool
	w         io.Writer
	stats     *stage.Stats
	emitted   emittedCounter
	sometimes rate.Sometimes
}

func newProgressReporter(enabled bool, w io.Writer, stats *stage.Stats, emitted emittedCounter) *progressReporter {
	if !enabled || w == nil {
		return &progressReporter{}
	}
	return &progressReporter{
		enabled:   true,
		w:         w,
		stats:     stats,
		emitted:   emitted,
		sometimes: rate.Sometimes{Interval: progressInterval},
	}
}

// track reports after each record has travelled through the rest of the
// pipeline.
func (p *progressReporter) track(in stage.Stream) stage.Stream {
	if !p.enabled {
		return in
	}
	return func(yield func(any, error) bool) {
		for rec, err := range in {
			if !yield(rec, err) {
				return
			}
			p.sometimes.Do(p.emit)
		}
	}
}

func (p *progressReporter) finish() {
	if p.enabled {
		p.emit()
	}
}

func (p *progressReporter) emit() {
	_, _ = fmt.Fprintf(p.w, "progress stage=convert read=%d emitted=%d\n", p.stats.Read, p.emitted.Written())
}
