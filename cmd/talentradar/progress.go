package main

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/lamim/talentradar/pkg/models"
)

var eventLabels = map[string]string{
	models.EventParsing:    "Planning terms",
	models.EventSearching:  "Searching papers",
	models.EventExtracting: "Extracting authors",
	models.EventAnalyzing:  "Scoring candidates",
	models.EventRanking:    "Ranking",
	models.EventFinalizing: "Finalizing",
	models.EventPaused:     "Paused",
	models.EventDone:       "Done",
}

// progressSink renders scheduler progress events on a percentage bar
type progressSink struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressSink() *progressSink {
	return &progressSink{bar: progressbar.Default(100, "Starting")}
}

// Update is a scheduler.ProgressFunc
func (p *progressSink) Update(event string, fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label, ok := eventLabels[event]
	if !ok {
		label = event
	}
	p.bar.Describe(label)
	_ = p.bar.Set(int(math.Round(math.Max(0, math.Min(1, fraction)) * 100)))
}

// Stop completes the bar for a finished task and freezes it otherwise
func (p *progressSink) Stop(done bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done {
		_ = p.bar.Finish()
		return
	}
	fmt.Fprintln(os.Stderr)
}
