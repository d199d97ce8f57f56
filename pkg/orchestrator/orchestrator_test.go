package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/vidsprite/pkg/adapters/logger"
	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/metrics"
	"github.com/user/vidsprite/pkg/mocks"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/rgb"
	"github.com/user/vidsprite/pkg/streammeta"
	"github.com/user/vidsprite/pkg/webvtt"
)

const testDir = "out"

type fixture struct {
	source   *mocks.MediaSource
	opener   *mocks.MediaOpener
	renderer *mocks.Renderer
	fs       *mocks.FileSystem
	sink     *mocks.DebugSink
	recorder *metrics.Recorder
	log      *mocks.Logger
	metadata pipeline.Stage[pipeline.MetadataInput, pipeline.MetadataResult]
}

func newFixture(source *mocks.MediaSource) *fixture {
	return &fixture{
		source:   source,
		opener:   &mocks.MediaOpener{Source: source},
		renderer: &mocks.Renderer{},
		fs:       mocks.NewFileSystem(),
		sink:     mocks.NewDebugSink(false),
		recorder: metrics.New(),
		log:      mocks.NewLogger(),
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	metadata := f.metadata
	if metadata == nil {
		metadata = streammeta.NewStage(f.fs, logger.NewNoop())
	}
	return New(
		f.opener,
		f.renderer,
		f.fs,
		f.sink,
		metadata,
		f.recorder,
		f.log,
	)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Input = "input.mp4"
	cfg.OutputDir = testDir
	return cfg
}

// evenSource yields n key packets step apart on a 320x180 stream lasting n*step.
func evenSource(n int, step mediatime.Time) *mocks.MediaSource {
	return mocks.NewMediaSource(mediatime.Time(int64(n))*step, 320, 180, mocks.EvenlySpaced(n, step)...)
}

func cueCount(t *testing.T, fs *mocks.FileSystem) int {
	t.Helper()
	data, ok := fs.GetFile(filepath.Join(testDir, "preview.vtt"))
	if !ok {
		t.Fatal("expected preview.vtt to be written")
	}
	track, err := webvtt.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return track.Len()
}

func counterValue(t *testing.T, r *metrics.Recorder, name string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestOrchestrator_Run_HundredFrames(t *testing.T) {
	f := newFixture(evenSource(100, mediatime.FromSeconds(2)))

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.State != StateDone {
		t.Errorf("expected state done, got %s", result.State)
	}
	if result.Failed() {
		t.Errorf("expected no failed outputs, got %+v", result.FailedOutputs())
	}
	if result.RunID == "" {
		t.Error("expected run ID to be set")
	}

	if pages := f.fs.FilesWithSuffix(".jpeg"); len(pages) != 4 {
		t.Errorf("expected 4 pages, got %v", pages)
	}
	if got := cueCount(t, f.fs); got != 100 {
		t.Errorf("expected 100 cues, got %d", got)
	}

	out, ok := result.Output(pipeline.OutputSpritesheet)
	if !ok {
		t.Fatal("expected spritesheet output")
	}
	if out.Frames != 100 || len(out.Files) != 5 {
		t.Errorf("expected 100 frames in 5 files, got %d in %v", out.Frames, out.Files)
	}
	if result.Native != (pipeline.Dimension{Width: 320, Height: 180}) {
		t.Errorf("unexpected native size %+v", result.Native)
	}
	if !f.source.Closed {
		t.Error("expected source to be closed")
	}
}

func TestOrchestrator_Run_SevenFrames(t *testing.T) {
	f := newFixture(evenSource(7, mediatime.FromSeconds(2)))

	if _, err := f.orchestrator().Run(context.Background(), testConfig()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if pages := f.fs.FilesWithSuffix(".jpeg"); len(pages) != 1 {
		t.Errorf("expected 1 page, got %v", pages)
	}
	if got := cueCount(t, f.fs); got != 7 {
		t.Errorf("expected 7 cues, got %d", got)
	}
}

func TestOrchestrator_Run_SkipsUndueDecode(t *testing.T) {
	f := newFixture(evenSource(20, mediatime.FromMillis(500)))

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 0, 2, 4, 6, 8 seconds
	if len(f.source.Decoded) != 5 {
		t.Errorf("expected 5 decoded packets, got %d", len(f.source.Decoded))
	}
	if result.Packets != 20 || result.Decoded != 5 {
		t.Errorf("expected 20 packets and 5 decoded, got %d and %d", result.Packets, result.Decoded)
	}
	if got := counterValue(t, f.recorder, "vidsprite_packets_skipped_total"); got != 15 {
		t.Errorf("expected 15 skipped packets, got %v", got)
	}
}

func TestOrchestrator_Run_IndependentSamplers(t *testing.T) {
	f := newFixture(evenSource(20, mediatime.FromMillis(500)))
	cfg := testConfig()
	cfg.Timelens = true

	result, err := f.orchestrator().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ss, _ := result.Output(pipeline.OutputSpritesheet)
	tl, _ := result.Output(pipeline.OutputTimelens)
	if ss.Frames != 5 {
		t.Errorf("expected 5 spritesheet frames, got %d", ss.Frames)
	}
	if tl.Frames != 10 {
		t.Errorf("expected 10 timelens frames, got %d", tl.Frames)
	}
	if len(f.source.Decoded) != 10 {
		t.Errorf("expected 10 decoded packets, got %d", len(f.source.Decoded))
	}

	data, ok := f.fs.GetFile(filepath.Join(testDir, "preview_timelens.jpeg"))
	if !ok {
		t.Fatal("expected timelens strip to be written")
	}
	if string(data) != "jpeg:1000x90" {
		t.Errorf("expected strip resized to 1000x90, got %q", data)
	}
	if got := counterValue(t, f.recorder, "vidsprite_frames_accepted_total"); got != 15 {
		t.Errorf("expected 15 accepted frames, got %v", got)
	}
}

func TestOrchestrator_Run_Metadata(t *testing.T) {
	f := newFixture(evenSource(5, mediatime.FromSeconds(2)))

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out, ok := result.Output(pipeline.OutputMetadata)
	if !ok || out.Err != nil {
		t.Fatalf("expected metadata output, got %+v", out)
	}

	data, ok := f.fs.GetFile(filepath.Join(testDir, streammeta.FileName))
	if !ok {
		t.Fatal("expected metadata.json to be written")
	}
	var m streammeta.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m.ContentType != "video/mp4" || m.Duration != 10 || m.Width != 320 || m.Height != 180 {
		t.Errorf("unexpected metadata %+v", m)
	}
}

func TestOrchestrator_Run_MetadataFailureIsolated(t *testing.T) {
	f := newFixture(evenSource(5, mediatime.FromSeconds(2)))
	f.metadata = pipeline.StageFunc[pipeline.MetadataInput, pipeline.MetadataResult](
		func(ctx context.Context, in pipeline.MetadataInput) (pipeline.MetadataResult, error) {
			return pipeline.MetadataResult{}, pipeline.ErrIO
		})

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out, _ := result.Output(pipeline.OutputMetadata)
	if !errors.Is(out.Err, pipeline.ErrIO) {
		t.Errorf("expected metadata ErrIO, got %v", out.Err)
	}
	if ss, _ := result.Output(pipeline.OutputSpritesheet); ss.Err != nil {
		t.Errorf("expected spritesheet to succeed, got %v", ss.Err)
	}
	if !f.log.Contains(ports.LevelWarn, "metadata") {
		t.Error("expected metadata failure to be logged")
	}
}

func TestOrchestrator_Run_Truncated(t *testing.T) {
	source := evenSource(7, mediatime.FromSeconds(2))
	source.PacketErr = errors.New("unexpected end of mdat")
	f := newFixture(source)

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if !errors.Is(err, pipeline.ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
	if result.State != StateFailed || !result.Truncated {
		t.Errorf("expected failed truncated run, got %s truncated=%v", result.State, result.Truncated)
	}
	if got := cueCount(t, f.fs); got != 7 {
		t.Errorf("expected outputs to be finalized with 7 cues, got %d", got)
	}
	if !f.log.Contains(ports.LevelWarn, "unexpected end of mdat") {
		t.Error("expected truncation warning to be logged")
	}
}

func TestOrchestrator_Run_TolerateTruncation(t *testing.T) {
	source := evenSource(7, mediatime.FromSeconds(2))
	source.PacketErr = errors.New("unexpected end of mdat")
	f := newFixture(source)

	cfg := testConfig()
	cfg.TolerateTruncation = true

	result, err := f.orchestrator().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected truncation to be tolerated, got %v", err)
	}
	if result.State != StateDone || !result.Truncated {
		t.Errorf("expected done truncated run, got %s truncated=%v", result.State, result.Truncated)
	}
}

func TestOrchestrator_Run_FailureIsolation(t *testing.T) {
	f := newFixture(evenSource(10, mediatime.FromSeconds(1)))
	// Tiles come back at the wrong size; timelens columns are untouched.
	f.renderer.ScaleImageFunc = func(img image.Image, width, height int, scaler ports.Scaler) *rgb.Image {
		if width > 1 {
			return rgb.New(image.Rect(0, 0, width+1, height))
		}
		return rgb.New(image.Rect(0, 0, width, height))
	}
	cfg := testConfig()
	cfg.Timelens = true

	result, err := f.orchestrator().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Failed() {
		t.Fatal("expected a failed output")
	}

	ss, _ := result.Output(pipeline.OutputSpritesheet)
	if !errors.Is(ss.Err, pipeline.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", ss.Err)
	}
	tl, _ := result.Output(pipeline.OutputTimelens)
	if tl.Err != nil || tl.Frames != 10 {
		t.Errorf("expected timelens to succeed with 10 frames, got %+v", tl)
	}
	if _, ok := f.fs.GetFile(filepath.Join(testDir, "preview.vtt")); ok {
		t.Error("expected failed spritesheet not to be saved")
	}
	if got := counterValue(t, f.recorder, "vidsprite_output_failures_total"); got != 1 {
		t.Errorf("expected 1 output failure, got %v", got)
	}
}

func TestOrchestrator_Run_DecodeErrorsSkipped(t *testing.T) {
	source := evenSource(3, mediatime.FromSeconds(2))
	defaultDecode := (&mocks.MediaSource{Stream: source.Stream}).Decode
	source.DecodeFunc = func(pkt ports.Packet) ([]ports.Frame, error) {
		if pkt.PTS == mediatime.FromSeconds(2) {
			return nil, errors.New("corrupt slice")
		}
		return defaultDecode(pkt)
	}
	f := newFixture(source)

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.DecodeErrors != 1 {
		t.Errorf("expected 1 decode error, got %d", result.DecodeErrors)
	}
	if got := cueCount(t, f.fs); got != 2 {
		t.Errorf("expected 2 cues, got %d", got)
	}
}

func TestOrchestrator_Run_EmptyStream(t *testing.T) {
	f := newFixture(mocks.NewMediaSource(mediatime.FromSeconds(10), 320, 180))

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ss, _ := result.Output(pipeline.OutputSpritesheet)
	if !errors.Is(ss.Err, pipeline.ErrEmptyStream) {
		t.Errorf("expected ErrEmptyStream, got %v", ss.Err)
	}
	if got := cueCount(t, f.fs); got != 0 {
		t.Errorf("expected header-only track, got %d cues", got)
	}
}

func TestOrchestrator_Run_NoVideoStream(t *testing.T) {
	source := evenSource(3, mediatime.FromSeconds(1))
	source.StreamErr = ports.ErrNoVideoStream
	f := newFixture(source)

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if !errors.Is(err, ports.ErrNoVideoStream) {
		t.Fatalf("expected ErrNoVideoStream, got %v", err)
	}
	if result.State != StateFailed {
		t.Errorf("expected failed state, got %s", result.State)
	}
	if len(f.fs.Writes()) != 0 {
		t.Error("expected nothing to be written")
	}
}

func TestOrchestrator_Run_OpenError(t *testing.T) {
	f := newFixture(nil)
	f.opener.OpenFunc = func(ctx context.Context, path string) (ports.MediaSource, error) {
		return nil, pipeline.ErrIO
	}

	if _, err := f.orchestrator().Run(context.Background(), testConfig()); !errors.Is(err, pipeline.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	f := newFixture(evenSource(10, mediatime.FromSeconds(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.orchestrator().Run(ctx, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.State != StateFailed {
		t.Errorf("expected failed state, got %s", result.State)
	}
}

func TestOrchestrator_Run_InvalidConfig(t *testing.T) {
	f := newFixture(evenSource(1, mediatime.FromSeconds(1)))

	cfg := testConfig()
	cfg.Input = ""
	if _, err := f.orchestrator().Run(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = testConfig()
	cfg.Spritesheet, cfg.Timelens, cfg.Metadata = false, false, false
	if _, err := f.orchestrator().Run(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if len(f.opener.OpenedPaths) != 0 {
		t.Error("expected input not to be opened")
	}
}

func TestOrchestrator_Run_DebugSink(t *testing.T) {
	f := newFixture(evenSource(4, mediatime.FromSeconds(2)))
	f.sink = mocks.NewDebugSink(true)

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := len(f.sink.SampledFrames["spritesheet"]); got != 4 {
		t.Errorf("expected 4 sampled frames, got %d", got)
	}
	if len(f.sink.AnnotatedPages) != 1 {
		t.Errorf("expected 1 annotated page, got %d", len(f.sink.AnnotatedPages))
	}

	var rep Report
	if err := json.Unmarshal(f.sink.RunJSON, &rep); err != nil {
		t.Fatalf("run JSON: %v", err)
	}
	if rep.RunID != result.RunID || rep.State != "done" || len(rep.Outputs) != 2 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:      "idle",
		StateStreaming: "streaming",
		StateDraining:  "draining",
		StateDone:      "done",
		StateFailed:    "failed",
		State(42):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
