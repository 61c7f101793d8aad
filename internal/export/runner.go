package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cliplab/internal/annotations"
	"cliplab/internal/config"
	"cliplab/internal/geometry"
	"cliplab/internal/logging"
	"cliplab/internal/media"
	"cliplab/internal/services"
)

// Extractor is the engine surface the exporter depends on. The concrete
// engine satisfies it; tests substitute a fake.
type Extractor interface {
	EnsureReady(ctx context.Context) error
	ExtractClip(ctx context.Context, source []byte, crop media.SourceCrop, tr media.TimeRange) (*media.Artifact, error)
}

// Result is one successfully exported clip.
type Result struct {
	Index      int
	Annotation annotations.Annotation
	Artifact   *media.Artifact
}

// BatchError identifies the item that aborted a batch. Results produced
// before the failure are still returned alongside it.
type BatchError struct {
	Index        int
	AnnotationID string
	Filename     string
	Err          error
}

func (e *BatchError) Error() string {
	if e.Index == LoadingIndex {
		return fmt.Sprintf("batch aborted during engine load: %v", e.Err)
	}
	return fmt.Sprintf("batch aborted at item %d (%s): %v", e.Index, e.Filename, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Runner sequences annotations through the mapper and the engine, strictly
// one at a time in caller order.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	eng    Extractor
	sink   ProgressSink
}

// Option customises Runner construction.
type Option func(*Runner)

// WithProgressSink routes batch progress events to sink.
func WithProgressSink(sink ProgressSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// NewRunner builds a batch runner around the given engine handle.
func NewRunner(cfg *config.Config, logger *slog.Logger, eng Extractor, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "exporter"),
		eng:    eng,
		sink:   nopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run exports every annotation as an independent clip. The first failure
// aborts the batch; completed results are returned with the error so the
// caller can still deliver them.
func (r *Runner) Run(ctx context.Context, anns []annotations.Annotation, canvas, video media.Resolution, source []byte) ([]Result, error) {
	if len(anns) == 0 {
		return nil, nil
	}

	if err := media.ValidateSource(source, r.cfg.MaxSourceBytes()); err != nil {
		return nil, &BatchError{
			Index: LoadingIndex,
			Err:   services.Wrap(services.ErrValidation, "exporter", "admit source", "", err),
		}
	}

	r.sink.Publish(Progress{Percent: 0, Index: LoadingIndex})
	if err := r.eng.EnsureReady(ctx); err != nil {
		return nil, &BatchError{Index: LoadingIndex, Err: err}
	}

	total := len(anns)
	results := make([]Result, 0, total)
	for i, ann := range anns {
		filename := r.filenameFor(ann, i, total)
		r.sink.Publish(Progress{Percent: 100 * float64(i) / float64(total), Index: i})

		if err := ctx.Err(); err != nil {
			return results, &BatchError{Index: i, AnnotationID: ann.ID, Filename: filename, Err: err}
		}
		if err := ann.Validate(); err != nil {
			return results, &BatchError{
				Index:        i,
				AnnotationID: ann.ID,
				Filename:     filename,
				Err:          services.Wrap(services.ErrValidation, "exporter", "validate annotation", ann.DisplayName(), err),
			}
		}

		crop, err := geometry.Map(ann.Crop, canvas, video)
		if err != nil {
			return results, &BatchError{Index: i, AnnotationID: ann.ID, Filename: filename, Err: err}
		}

		artifact, err := r.eng.ExtractClip(ctx, source, crop, ann.Time)
		if err != nil {
			return results, &BatchError{Index: i, AnnotationID: ann.ID, Filename: filename, Err: err}
		}
		artifact.Filename = filename

		r.logger.Info("clip exported",
			logging.Int(logging.FieldIndex, i),
			logging.String(logging.FieldFilename, filename),
			logging.Int("bytes", len(artifact.Payload)),
		)
		results = append(results, Result{Index: i, Annotation: ann, Artifact: artifact})
	}

	r.sink.Publish(Progress{Percent: 100, Index: total - 1})
	return results, nil
}

func (r *Runner) filenameFor(ann annotations.Annotation, index, total int) string {
	if name := strings.TrimSpace(ann.OutputName); name != "" {
		return ensureExtension(name, r.cfg.Export.Container)
	}
	return outputFilename(r.cfg.Export.FilenamePrefix, index+1, total, r.cfg.Export.Container)
}
