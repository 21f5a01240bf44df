package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/khorolets/near-rewards/internal/domain"
)

// Writer writes a report to one destination.
type Writer interface {
	Name() string
	Write(ctx context.Context, report domain.Report) error
}

// Exporter fans a finished report out to every configured writer.
// Implements worker.AfterRunHook.
type Exporter struct {
	writers []Writer
}

// NewExporter creates an Exporter. Nil writers are skipped.
func NewExporter(writers ...Writer) *Exporter {
	e := &Exporter{}
	for _, w := range writers {
		if w != nil {
			e.writers = append(e.writers, w)
		}
	}
	return e
}

// Len returns the number of configured writers.
func (e *Exporter) Len() int {
	return len(e.writers)
}

// Export writes the report to all writers. A failing writer does not stop the others.
func (e *Exporter) Export(ctx context.Context, report domain.Report) error {
	var errs []error
	for _, w := range e.writers {
		if err := w.Write(ctx, report); err != nil {
			slog.Error("export: writer failed", "writer", w.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
			continue
		}
		slog.Info("export: written", "writer", w.Name(), "rows", len(report.Rows))
	}
	return errors.Join(errs...)
}
