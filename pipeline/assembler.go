package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type transcriptionResult struct {
	startedAt time.Time
	text      string
}

// Assembler accumulates per-segment transcriptions and materializes the
// time-ordered transcript to the sink after every append. Results arrive in
// completion order, not start order, so the whole sink is rewritten each
// time; transcripts are tens of segments at most.
type Assembler struct {
	mu      sync.Mutex
	results []transcriptionResult
	sink    string
}

func NewAssembler(sink string) *Assembler {
	return &Assembler{sink: sink}
}

// Record appends one result and rewrites the sink.
func (a *Assembler) Record(startedAt time.Time, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, transcriptionResult{startedAt: startedAt, text: text})
	return a.writeLocked()
}

func (a *Assembler) writeLocked() error {
	sorted := make([]transcriptionResult, len(a.results))
	copy(sorted, a.results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].startedAt.Before(sorted[j].startedAt)
	})
	texts := make([]string, len(sorted))
	for i, r := range sorted {
		texts[i] = r.text
	}
	if err := os.MkdirAll(filepath.Dir(a.sink), 0755); err != nil {
		return fmt.Errorf("transcript dir: %w", err)
	}
	if err := os.WriteFile(a.sink, []byte(strings.Join(texts, " ")), 0644); err != nil {
		return fmt.Errorf("transcript write: %w", err)
	}
	return nil
}

// Text returns the ordered transcript.
func (a *Assembler) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	sorted := make([]transcriptionResult, len(a.results))
	copy(sorted, a.results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].startedAt.Before(sorted[j].startedAt)
	})
	texts := make([]string, len(sorted))
	for i, r := range sorted {
		texts[i] = r.text
	}
	return strings.Join(texts, " ")
}

func (a *Assembler) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Clear drops accumulated results and removes the sink. An absent sink
// means an empty transcript.
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = nil
	os.Remove(a.sink)
}

// SinkPath returns where the transcript is materialized.
func (a *Assembler) SinkPath() string { return a.sink }
