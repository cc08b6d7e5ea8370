package harness

import (
	"context"
	"strconv"
	"sync"

	"github.com/roach88/junction/internal/junction"
)

// traceRecorder collects firings for the Result and forwards them to an
// optional downstream Recorder (such as the SQLite journal).
type traceRecorder struct {
	next junction.Recorder

	mu       sync.Mutex
	channels map[junction.ChannelID]string
	patterns map[int]string
	records  []junction.FiringRecord
}

func newTraceRecorder(next junction.Recorder) *traceRecorder {
	return &traceRecorder{
		next:     next,
		channels: make(map[junction.ChannelID]string),
		patterns: make(map[int]string),
	}
}

func (r *traceRecorder) nameChannel(id junction.ChannelID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[id] = name
}

func (r *traceRecorder) namePattern(index int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[index] = name
}

// RecordFiring implements junction.Recorder.
func (r *traceRecorder) RecordFiring(ctx context.Context, rec junction.FiringRecord) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	if r.next != nil {
		return r.next.RecordFiring(ctx, rec)
	}
	return nil
}

func (r *traceRecorder) channelName(id junction.ChannelID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channelNameLocked(id)
}

func (r *traceRecorder) channelNameLocked(id junction.ChannelID) string {
	if name, ok := r.channels[id]; ok {
		return name
	}
	return "#" + strconv.FormatInt(int64(id), 10)
}

// events renders the recorded firings with scenario names.
func (r *traceRecorder) events() []FiringEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FiringEvent, 0, len(r.records))
	for _, rec := range r.records {
		ev := FiringEvent{
			Seq:      rec.Seq,
			Pattern:  r.patterns[rec.Pattern],
			Trigger:  r.channelNameLocked(rec.Trigger),
			Channels: make([]string, len(rec.Channels)),
			Args:     rec.Args,
		}
		if ev.Pattern == "" {
			ev.Pattern = "#" + strconv.Itoa(rec.Pattern)
		}
		for i, ch := range rec.Channels {
			ev.Channels[i] = r.channelNameLocked(ch)
		}
		out = append(out, ev)
	}
	return out
}
