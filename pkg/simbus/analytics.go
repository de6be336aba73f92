package simbus

import (
	"sort"
	"time"

	"github.com/swarmlab/simbus/pkg/simbus/event"
)

// Analysis is an on-demand breakdown of the (filtered) event log.
type Analysis struct {
	TotalEvents         int
	ByKind              map[event.Kind]int
	BySource            map[string]int
	AvgProcessingTimeMs float64
	// ErrorRate is entries with at least one delivery error divided by
	// total matched entries.
	ErrorRate float64
	Timeline  []TimelineBucket
}

// TimelineBucket counts events created within one 60-second window.
type TimelineBucket struct {
	Start time.Time
	Count int
}

// Analyze computes aggregates over the log entries matching the filter.
func (b *Bus) Analyze(f Filter) Analysis {
	a := Analysis{
		ByKind:   make(map[event.Kind]int),
		BySource: make(map[string]int),
	}

	b.logMu.Lock()
	var (
		totalProc time.Duration
		failed    int
		buckets   = make(map[time.Time]int)
	)
	for _, e := range b.log {
		if !f.matches(e) {
			continue
		}
		a.TotalEvents++
		a.ByKind[e.Event.Kind]++
		a.BySource[e.Event.SourceID]++
		totalProc += e.ProcessingTime
		if len(e.DeliveryErrors) > 0 {
			failed++
		}
		buckets[e.Event.CreatedAt.Truncate(time.Minute)]++
	}
	b.logMu.Unlock()

	if a.TotalEvents > 0 {
		a.AvgProcessingTimeMs = float64(totalProc.Microseconds()) / float64(a.TotalEvents) / 1000.0
		a.ErrorRate = float64(failed) / float64(a.TotalEvents)
	}

	a.Timeline = make([]TimelineBucket, 0, len(buckets))
	for start, count := range buckets {
		a.Timeline = append(a.Timeline, TimelineBucket{Start: start, Count: count})
	}
	sort.Slice(a.Timeline, func(i, j int) bool {
		return a.Timeline[i].Start.Before(a.Timeline[j].Start)
	})
	return a
}
