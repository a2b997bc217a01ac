package errors

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Diagnostic records a per-item fallback. Diagnostics never stop the batch;
// the item falls back to a data-driven default and the run continues.
type Diagnostic struct {
	Type    ErrorType `json:"type"`
	Step    string    `json:"step"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
}

// String formats the diagnostic for logs and test failures.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", d.Type, d.Step, d.Subject, d.Message)
}

// Diagnostics collects per-item diagnostics for one pipeline run.
// The zero value is ready to use; a nil *Diagnostics discards everything.
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewDiagnostics creates an empty collector
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records a diagnostic.
func (d *Diagnostics) Add(errType ErrorType, step, subject, format string, args ...any) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, Diagnostic{
		Type:    errType,
		Step:    step,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

// MissingSource records a fallback to a default value.
func (d *Diagnostics) MissingSource(step, subject, format string, args ...any) {
	d.Add(ErrTypeMissingSource, step, subject, format, args...)
}

// Ambiguous records a skipped item.
func (d *Diagnostics) Ambiguous(step, subject, format string, args ...any) {
	d.Add(ErrTypeAmbiguousCategory, step, subject, format, args...)
}

// Invariant records an emitted result that breaks an invariant.
func (d *Diagnostics) Invariant(step, subject, format string, args ...any) {
	d.Add(ErrTypeInvariant, step, subject, format, args...)
}

// Items returns a copy of the recorded diagnostics.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Len returns the number of recorded diagnostics.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// CountByType groups the diagnostics by type.
func (d *Diagnostics) CountByType() map[ErrorType]int {
	counts := make(map[ErrorType]int)
	for _, item := range d.Items() {
		counts[item.Type]++
	}
	return counts
}

// Filter returns the diagnostics of one type.
func (d *Diagnostics) Filter(errType ErrorType) []Diagnostic {
	var out []Diagnostic
	for _, item := range d.Items() {
		if item.Type == errType {
			out = append(out, item)
		}
	}
	return out
}

// LogSummary writes counts per type, and the first few items of each type.
// Invariant violations are always logged at error level.
func (d *Diagnostics) LogSummary(ctx context.Context, logger *slog.Logger, sample int) {
	counts := d.CountByType()
	if len(counts) == 0 {
		return
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	for _, t := range types {
		items := d.Filter(ErrorType(t))
		level := slog.LevelWarn
		if ErrorType(t) == ErrTypeInvariant || ErrorType(t) == ErrTypeTransaction {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "Diagnostics recorded",
			slog.String("type", t),
			slog.Int("count", len(items)))
		for i, item := range items {
			if i >= sample && level != slog.LevelError {
				break
			}
			logger.Log(ctx, level, item.Message,
				slog.String("type", t),
				slog.String("step", item.Step),
				slog.String("subject", item.Subject))
		}
	}
}
