package ui

import (
	"sync"
	"time"
)

// ProgressTracker manages progress state across stages.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	item       string
	stageStart time.Time
	errors     []ErrorEvent
	warnings   []ErrorEvent

	// ETA smoothing to prevent wild fluctuations
	lastETA time.Duration

	lastCurrent   int
	lastSpeedCalc time.Time
	rate          float64 // items/sec, smoothed
}

// ProgressStats contains a snapshot of current progress.
type ProgressStats struct {
	Stage      Stage
	Current    int
	Total      int
	Progress   float64
	ETA        time.Duration
	Item       string
	Rate       float64
	ErrorCount int
	WarnCount  int
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:         StageCatalog,
		stageStart:    now,
		lastSpeedCalc: now,
	}
}

// SetStage transitions to a new stage.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.stage = stage
	p.total = total
	p.current = 0
	p.item = ""
	p.stageStart = now
	p.lastETA = 0
	p.lastCurrent = 0
	p.lastSpeedCalc = now
	p.rate = 0
}

// Update updates progress within current stage.
func (p *ProgressTracker) Update(current, total int, item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if total > 0 {
		p.total = total
	}
	if item != "" {
		p.item = item
	}

	// Sample every 500ms to avoid noise
	now := time.Now()
	elapsed := now.Sub(p.lastSpeedCalc)
	if elapsed >= 500*time.Millisecond {
		if delta := current - p.lastCurrent; delta > 0 {
			speed := float64(delta) / elapsed.Seconds()
			if p.rate == 0 {
				p.rate = speed
			} else {
				p.rate = 0.2*speed + 0.8*p.rate
			}
		}
		p.lastCurrent = current
		p.lastSpeedCalc = now
	}
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Stage returns the current stage.
func (p *ProgressTracker) Stage() Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stage
}

// Progress returns current progress percentage (0.0-1.0).
func (p *ProgressTracker) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress()
}

func (p *ProgressTracker) progress() float64 {
	if p.total == 0 {
		return 0.0
	}
	return min(float64(p.current)/float64(p.total), 1.0)
}

// Stats returns current statistics snapshot.
// Uses write lock because calculateETA modifies lastETA for smoothing.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:      p.stage,
		Current:    p.current,
		Total:      p.total,
		Progress:   p.progress(),
		ETA:        p.calculateETA(),
		Item:       p.item,
		Rate:       p.rate,
		ErrorCount: len(p.errors),
		WarnCount:  len(p.warnings),
	}
}

// etaSmoothingFactor is the weight given to a fresh ETA sample.
const etaSmoothingFactor = 0.3

// calculateETA must be called with the lock held.
func (p *ProgressTracker) calculateETA() time.Duration {
	if p.current == 0 || p.total == 0 {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	progress := float64(p.current) / float64(p.total)
	if progress <= 0 || progress >= 1.0 {
		return 0
	}

	rawRemaining := time.Duration(float64(elapsed)/progress) - elapsed
	if rawRemaining < 0 {
		return 0
	}

	if p.lastETA == 0 {
		p.lastETA = rawRemaining
		return rawRemaining
	}

	smoothed := time.Duration(
		etaSmoothingFactor*float64(rawRemaining) +
			(1-etaSmoothingFactor)*float64(p.lastETA),
	)
	p.lastETA = smoothed
	return smoothed
}

// Errors returns the list of recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.errors))
	copy(result, p.errors)
	return result
}

// Warnings returns the list of recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.warnings))
	copy(result, p.warnings)
	return result
}
