package export

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cliplab/internal/annotations"
	"cliplab/internal/logging"
	"cliplab/internal/media"
	"cliplab/internal/services"
	"cliplab/internal/testsupport"
)

type extractCall struct {
	crop media.SourceCrop
	tr   media.TimeRange
}

type fakeExtractor struct {
	readyErr   error
	readyCalls int
	failAt     int
	failErr    error
	calls      []extractCall
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{failAt: -1}
}

func (f *fakeExtractor) EnsureReady(context.Context) error {
	f.readyCalls++
	return f.readyErr
}

func (f *fakeExtractor) ExtractClip(_ context.Context, _ []byte, crop media.SourceCrop, tr media.TimeRange) (*media.Artifact, error) {
	call := len(f.calls)
	f.calls = append(f.calls, extractCall{crop: crop, tr: tr})
	if f.failAt >= 0 && call == f.failAt {
		err := f.failErr
		if err == nil {
			err = errors.New("extraction failed")
		}
		return nil, err
	}
	return &media.Artifact{
		Payload:  []byte(fmt.Sprintf("clip-%d", call)),
		MIMEType: "video/mp4",
	}, nil
}

type progressRecorder struct {
	events []Progress
}

func (p *progressRecorder) Publish(ev Progress) {
	p.events = append(p.events, ev)
}

func testAnnotations(n int) []annotations.Annotation {
	anns := make([]annotations.Annotation, 0, n)
	for i := 0; i < n; i++ {
		ann := annotations.New(fmt.Sprintf("label-%d", i),
			media.CropArea{X: 50, Y: 50, Width: 300, Height: 200},
			media.TimeRange{Start: float64(i), End: float64(i) + 2},
		)
		anns = append(anns, ann)
	}
	return anns
}

var (
	testCanvas = media.Resolution{Width: 640, Height: 360}
	testVideo  = media.Resolution{Width: 1920, Height: 1080}
)

func newTestRunner(t *testing.T, eng Extractor, opts ...Option) *Runner {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return NewRunner(cfg, logging.NewNop(), eng, opts...)
}

func TestRunExportsAllAnnotationsInOrder(t *testing.T) {
	eng := newFakeExtractor()
	runner := newTestRunner(t, eng)
	anns := testAnnotations(3)

	results, err := runner.Run(context.Background(), anns, testCanvas, testVideo, testsupport.MP4Header(64))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if eng.readyCalls != 1 {
		t.Errorf("EnsureReady calls = %d, want 1", eng.readyCalls)
	}

	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
		want := fmt.Sprintf("clip%03d.mp4", i+1)
		if res.Artifact.Filename != want {
			t.Errorf("result %d filename = %q, want %q", i, res.Artifact.Filename, want)
		}
		if res.Annotation.ID != anns[i].ID {
			t.Errorf("result %d annotation out of order", i)
		}
	}

	// The mapper ran before the engine: 3x scale of the display crop.
	wantCrop := media.SourceCrop{X: 150, Y: 150, Width: 900, Height: 600}
	for i, call := range eng.calls {
		if call.crop != wantCrop {
			t.Errorf("call %d crop = %+v, want %+v", i, call.crop, wantCrop)
		}
		if call.tr != anns[i].Time {
			t.Errorf("call %d time range = %+v, want %+v", i, call.tr, anns[i].Time)
		}
	}
}

func TestRunProgressEvents(t *testing.T) {
	rec := &progressRecorder{}
	runner := newTestRunner(t, newFakeExtractor(), WithProgressSink(rec))

	_, err := runner.Run(context.Background(), testAnnotations(4), testCanvas, testVideo, testsupport.MP4Header(64))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rec.events) == 0 {
		t.Fatal("no progress events published")
	}
	if first := rec.events[0]; first.Index != LoadingIndex || first.Percent != 0 {
		t.Errorf("first event = %+v, want loading phase at 0%%", first)
	}
	last := rec.events[len(rec.events)-1]
	if last.Percent != 100 || last.Index != 3 {
		t.Errorf("last event = %+v, want 100%% at index 3", last)
	}

	// Indices and percentages only ever move forward.
	for i := 1; i < len(rec.events); i++ {
		prev, cur := rec.events[i-1], rec.events[i]
		if cur.Index < prev.Index {
			t.Errorf("event %d index %d after %d", i, cur.Index, prev.Index)
		}
		if cur.Percent < prev.Percent {
			t.Errorf("event %d percent %.1f after %.1f", i, cur.Percent, prev.Percent)
		}
	}
}

func TestRunAbortsOnFailurePreservingResults(t *testing.T) {
	eng := newFakeExtractor()
	eng.failAt = 2
	eng.failErr = services.Wrap(services.ErrSubsystem, "engine", "extract", "", errors.New("boom"))
	runner := newTestRunner(t, eng)
	anns := testAnnotations(4)

	results, err := runner.Run(context.Background(), anns, testCanvas, testVideo, testsupport.MP4Header(64))
	if err == nil {
		t.Fatal("expected batch error")
	}

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("error type = %T, want *BatchError", err)
	}
	if batchErr.Index != 2 {
		t.Errorf("failed index = %d, want 2", batchErr.Index)
	}
	if batchErr.AnnotationID != anns[2].ID {
		t.Errorf("failed annotation = %q, want %q", batchErr.AnnotationID, anns[2].ID)
	}
	if !errors.Is(err, services.ErrSubsystem) {
		t.Errorf("cause not preserved through BatchError: %v", err)
	}

	// The two completed clips survive the abort.
	if len(results) != 2 {
		t.Fatalf("preserved results = %d, want 2", len(results))
	}
	if len(eng.calls) != 3 {
		t.Errorf("extract calls = %d, want 3 (no work after the failure)", len(eng.calls))
	}
}

func TestRunEngineLoadFailure(t *testing.T) {
	eng := newFakeExtractor()
	eng.readyErr = services.Wrap(services.ErrEngineInit, "engine", "load", "", errors.New("no binary"))
	runner := newTestRunner(t, eng)

	results, err := runner.Run(context.Background(), testAnnotations(2), testCanvas, testVideo, testsupport.MP4Header(64))
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("error type = %T, want *BatchError", err)
	}
	if batchErr.Index != LoadingIndex {
		t.Errorf("failed index = %d, want %d", batchErr.Index, LoadingIndex)
	}
	if !errors.Is(err, services.ErrEngineInit) {
		t.Errorf("cause not preserved: %v", err)
	}
	if len(eng.calls) != 0 {
		t.Errorf("extract calls = %d, want 0", len(eng.calls))
	}
}

func TestRunRejectsOversizedSource(t *testing.T) {
	eng := newFakeExtractor()
	runner := newTestRunner(t, eng)
	runner.cfg.Export.MaxSourceMiB = 1

	big := testsupport.MP4Header(2 << 20)
	_, err := runner.Run(context.Background(), testAnnotations(1), testCanvas, testVideo, big)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want %v", err, services.ErrValidation)
	}
	if eng.readyCalls != 0 {
		t.Errorf("engine was initialized for an inadmissible source")
	}
}

func TestRunRejectsNonVideoSource(t *testing.T) {
	runner := newTestRunner(t, newFakeExtractor())

	_, err := runner.Run(context.Background(), testAnnotations(1), testCanvas, testVideo, []byte("plain text, not a video"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want %v", err, services.ErrValidation)
	}
}

func TestRunHonorsExplicitOutputNames(t *testing.T) {
	runner := newTestRunner(t, newFakeExtractor())
	anns := testAnnotations(2)
	anns[0].OutputName = "serve_backhand"
	anns[1].OutputName = "rally.mov"

	results, err := runner.Run(context.Background(), anns, testCanvas, testVideo, testsupport.MP4Header(64))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := results[0].Artifact.Filename; got != "serve_backhand.mp4" {
		t.Errorf("filename = %q, want serve_backhand.mp4", got)
	}
	if got := results[1].Artifact.Filename; got != "rally.mov" {
		t.Errorf("filename = %q, want rally.mov", got)
	}
}

func TestRunRejectsInvalidAnnotation(t *testing.T) {
	eng := newFakeExtractor()
	runner := newTestRunner(t, eng)
	anns := testAnnotations(2)
	anns[1].Time = media.TimeRange{Start: 9, End: 3}

	results, err := runner.Run(context.Background(), anns, testCanvas, testVideo, testsupport.MP4Header(64))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want %v", err, services.ErrValidation)
	}
	if len(results) != 1 {
		t.Errorf("preserved results = %d, want 1", len(results))
	}
	if len(eng.calls) != 1 {
		t.Errorf("extract calls = %d, want 1", len(eng.calls))
	}
}

func TestRunMissingResolution(t *testing.T) {
	runner := newTestRunner(t, newFakeExtractor())

	_, err := runner.Run(context.Background(), testAnnotations(1), testCanvas, media.Resolution{}, testsupport.MP4Header(64))
	if !errors.Is(err, services.ErrMissingResolution) {
		t.Fatalf("error = %v, want %v", err, services.ErrMissingResolution)
	}
}

func TestRunStopsBetweenItemsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := newFakeExtractor()
	rec := &progressRecorder{}
	runner := newTestRunner(t, eng, WithProgressSink(ProgressFunc(func(p Progress) {
		rec.Publish(p)
		if p.Index == 1 {
			cancel()
		}
	})))

	results, err := runner.Run(ctx, testAnnotations(4), testCanvas, testVideo, testsupport.MP4Header(64))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(results) != 1 {
		t.Errorf("preserved results = %d, want 1", len(results))
	}
}

func TestRunEmptyBatch(t *testing.T) {
	rec := &progressRecorder{}
	eng := newFakeExtractor()
	runner := newTestRunner(t, eng, WithProgressSink(rec))

	results, err := runner.Run(context.Background(), nil, testCanvas, testVideo, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
	if eng.readyCalls != 0 {
		t.Errorf("engine touched for an empty batch")
	}
	if len(rec.events) != 0 {
		t.Errorf("progress events = %d, want 0", len(rec.events))
	}
}
