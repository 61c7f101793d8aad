package upload

import (
	"context"
	"log/slog"

	"cliplab/internal/logging"
	"cliplab/internal/media"
)

// Sink is a delivery destination for exported clip artifacts.
type Sink interface {
	// Name identifies the sink in logs and reports.
	Name() string
	// Prepare validates access before any item is attempted. For the remote
	// sink this is the token probe; failures there stop the whole delivery.
	Prepare(ctx context.Context) error
	// Save delivers one artifact.
	Save(ctx context.Context, artifact *media.Artifact) error
}

// ItemOutcome records one artifact's delivery result.
type ItemOutcome struct {
	Filename string
	Err      error
}

// Delivered reports whether the item reached the sink.
func (o ItemOutcome) Delivered() bool { return o.Err == nil }

// DeliveryReport aggregates per-item outcomes of one delivery pass.
type DeliveryReport struct {
	Sink  string
	Items []ItemOutcome
}

// Delivered counts items that reached the sink.
func (r DeliveryReport) Delivered() int {
	n := 0
	for _, item := range r.Items {
		if item.Delivered() {
			n++
		}
	}
	return n
}

// Failed counts items that did not reach the sink.
func (r DeliveryReport) Failed() int {
	return len(r.Items) - r.Delivered()
}

// Stage pushes artifacts into a sink one at a time. A failed item is recorded
// and the loop continues; only a failed Prepare aborts the pass.
type Stage struct {
	logger *slog.Logger
}

// NewStage builds a delivery stage.
func NewStage(logger *slog.Logger) *Stage {
	return &Stage{logger: logging.NewComponentLogger(logger, "upload")}
}

// Deliver pushes every artifact into sink and releases each payload once its
// outcome is recorded. The error is non-nil only when the sink could not be
// prepared; per-item failures live in the report.
func (s *Stage) Deliver(ctx context.Context, artifacts []*media.Artifact, sink Sink) (DeliveryReport, error) {
	report := DeliveryReport{Sink: sink.Name()}

	if err := sink.Prepare(ctx); err != nil {
		return report, err
	}

	for _, artifact := range artifacts {
		err := sink.Save(ctx, artifact)
		if err != nil {
			s.logger.Error("delivery failed",
				logging.String(logging.FieldFilename, artifact.Filename),
				logging.String("sink", sink.Name()),
				logging.Error(err),
			)
		} else {
			s.logger.Info("artifact delivered",
				logging.String(logging.FieldFilename, artifact.Filename),
				logging.String("sink", sink.Name()),
				logging.Int("bytes", len(artifact.Payload)),
			)
		}
		report.Items = append(report.Items, ItemOutcome{Filename: artifact.Filename, Err: err})

		// The payload is released as soon as the outcome is known so a large
		// batch does not pin every clip in memory until the pass ends.
		artifact.Payload = nil
	}

	return report, nil
}
