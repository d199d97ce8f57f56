// Package orchestrator drives a media source through per-output samplers into
// the spritesheet and timelens assemblers.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/metrics"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/sampler"
	"github.com/user/vidsprite/pkg/spritesheet"
	"github.com/user/vidsprite/pkg/timelens"
)

// Orchestrator runs one input at a time. It is not safe for concurrent use.
type Orchestrator struct {
	opener        ports.MediaOpener
	renderer      ports.Renderer
	fs            ports.FileSystem
	sink          ports.DebugSink
	metadataStage pipeline.Stage[pipeline.MetadataInput, pipeline.MetadataResult]
	metrics       *metrics.Recorder
	logger        ports.Logger
}

// New creates a new Orchestrator. metadataStage and recorder may be nil.
func New(
	opener ports.MediaOpener,
	renderer ports.Renderer,
	fs ports.FileSystem,
	sink ports.DebugSink,
	metadataStage pipeline.Stage[pipeline.MetadataInput, pipeline.MetadataResult],
	recorder *metrics.Recorder,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		opener:        opener,
		renderer:      renderer,
		fs:            fs,
		sink:          sink,
		metadataStage: metadataStage,
		metrics:       recorder,
		logger:        logger,
	}
}

// run holds the state of a single Run call.
type run struct {
	cfg       Config
	src       ports.MediaSource
	stream    ports.StreamInfo
	consumers []*consumer
	result    *RunResult
}

// Run processes cfg.Input and writes the requested outputs.
//
// Failures of one output do not stop the others; they are reported in
// RunResult.Outputs. Run returns an error when the input cannot be opened, has
// no video stream, the context is cancelled, or the stream is truncated and
// TolerateTruncation is false.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (RunResult, error) {
	started := time.Now()
	result := RunResult{
		RunID: uuid.NewString(),
		Input: cfg.Input,
		State: StateIdle,
	}
	finish := func(state State) {
		result.State = state
		result.Elapsed = time.Since(started)
		o.metrics.RunFinished(result.Elapsed.Seconds())
	}
	fail := func(err error) (RunResult, error) {
		finish(StateFailed)
		o.logger.Error(l10n.F("Run failed: %s", err))
		return result, err
	}

	if err := cfg.Validate(); err != nil {
		return fail(err)
	}
	if err := o.fs.MkdirAll(cfg.OutputDir); err != nil {
		return fail(fmt.Errorf("%w: %s: %v", pipeline.ErrIO, cfg.OutputDir, err))
	}

	o.logger.Info(l10n.F("Opening %s", cfg.Input))
	src, err := o.opener.Open(ctx, cfg.Input)
	if err != nil {
		return fail(fmt.Errorf("open %s: %w", cfg.Input, err))
	}
	defer src.Close()

	stream, err := src.VideoStream()
	if err != nil {
		return fail(fmt.Errorf("%s: %w", cfg.Input, err))
	}

	result.Source = src.Info()
	result.Stream = stream
	result.Duration = src.Duration()
	if result.Duration == 0 {
		result.Duration = stream.Duration
	}
	o.logger.Info(l10n.F("Video stream %s %dx%d, duration %s", stream.Codec, stream.Width, stream.Height, result.Duration))

	r := &run{cfg: cfg, src: src, stream: stream, result: &result}
	if err := o.buildConsumers(r); err != nil {
		return fail(err)
	}

	result.State = StateStreaming
	streamErr := o.stream(ctx, r)
	if streamErr != nil && !errors.Is(streamErr, pipeline.ErrTruncatedStream) {
		return fail(streamErr)
	}
	if streamErr != nil {
		result.Truncated = true
		o.logger.Warn(l10n.F("Stream ended early, finalizing outputs: %s", streamErr))
	}

	result.State = StateDraining
	o.drain(ctx, r)

	if streamErr != nil && !cfg.TolerateTruncation {
		res, err := fail(streamErr)
		o.saveRunJSON(&result)
		return res, err
	}

	finish(StateDone)
	o.saveRunJSON(&result)
	o.logger.Info(l10n.F("Run finished: %d packets, %d decoded, %d outputs failed",
		result.Packets, result.Decoded, len(result.FailedOutputs())))
	return result, nil
}

func (o *Orchestrator) debugEnabled() bool {
	return o.sink != nil && o.sink.Enabled()
}

func (o *Orchestrator) buildConsumers(r *run) error {
	if r.cfg.Spritesheet {
		asm, err := spritesheet.New(r.cfg.spritesheetOptions(), o.renderer, o.fs, o.sink, o.logger)
		if err != nil {
			return err
		}
		r.consumers = append(r.consumers, &consumer{
			kind:    pipeline.OutputSpritesheet,
			sampler: sampler.New(r.cfg.SpritesheetInterval),
			asm:     spritesheetAssembler{asm},
		})
	}
	if r.cfg.Timelens {
		asm, err := timelens.New(r.cfg.timelensOptions(), r.result.Duration, o.renderer, o.fs, o.logger)
		if err != nil {
			return err
		}
		r.consumers = append(r.consumers, &consumer{
			kind:    pipeline.OutputTimelens,
			sampler: sampler.New(r.cfg.TimelensInterval),
			asm:     timelensAssembler{asm},
		})
	}
	return nil
}

// stream pulls packets until EOF. Packets no consumer is due for are not decoded.
func (o *Orchestrator) stream(ctx context.Context, r *run) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkt, err := r.src.NextPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, pipeline.ErrTruncatedStream) {
				return err
			}
			return fmt.Errorf("%w: %v", pipeline.ErrTruncatedStream, err)
		}
		if pkt.StreamIndex != r.stream.Index {
			continue
		}

		r.result.Packets++
		o.metrics.PacketRead()

		if !r.anyDue(pkt.PTS) {
			o.metrics.PacketSkipped()
			continue
		}

		frames, err := r.src.Decode(pkt)
		if err != nil {
			r.result.DecodeErrors++
			o.metrics.DecodeError()
			o.logger.Warn(l10n.F("Decode failed at %s: %s", pkt.PTS, err))
			continue
		}
		r.result.Decoded += len(frames)
		o.metrics.FramesDecoded(len(frames))

		for _, f := range frames {
			if r.result.Native.Width == 0 {
				r.result.Native = pipeline.Dimension{Width: f.Width, Height: f.Height}
			}
			for _, c := range r.consumers {
				if c.due(f.Timestamp) {
					o.accept(r, c, f)
				}
			}
		}
	}
}

func (r *run) anyDue(ts mediatime.Time) bool {
	for _, c := range r.consumers {
		if c.due(ts) {
			return true
		}
	}
	return false
}

// accept hands a frame to one consumer. Errors mark only that consumer failed.
func (o *Orchestrator) accept(r *run, c *consumer, f ports.Frame) {
	if !c.asm.Initialized() {
		if err := c.asm.Initialize(f.Width, f.Height); err != nil {
			o.failConsumer(c, err)
			return
		}
	}

	w, h := c.asm.TargetSize()
	img := o.renderer.ScaleImage(f.Image, w, h, r.cfg.Scaler)
	if err := c.asm.AddFrame(f.Timestamp, img); err != nil {
		o.failConsumer(c, err)
		return
	}
	c.sampler.Accept(f.Timestamp)
	c.accepted++
	o.metrics.FrameAccepted(string(c.kind))

	if o.debugEnabled() {
		if err := o.sink.SaveSampledFrame(string(c.kind), c.accepted-1, img); err != nil {
			o.logger.Warn(l10n.F("Failed to save debug frame: %s", err))
		}
	}
}

func (o *Orchestrator) failConsumer(c *consumer, err error) {
	c.err = err
	o.metrics.OutputFailed(string(c.kind))
	o.logger.Warn(l10n.F("Output %s failed: %s", c.kind, err))
}

// drain finalizes every consumer that has not failed, then writes metadata.
func (o *Orchestrator) drain(ctx context.Context, r *run) {
	for _, c := range r.consumers {
		out := OutputResult{Kind: c.kind, Frames: c.accepted, Err: c.err}
		if c.active() {
			files, err := c.asm.Finish(r.result.Duration)
			out.Files = files
			o.metrics.ArtifactsWritten(string(c.kind), len(files))
			if err != nil {
				out.Err = err
				o.failConsumer(c, err)
			} else {
				o.logger.Info(l10n.F("Output %s wrote %d files from %d frames", c.kind, len(files), c.accepted))
			}
		}
		r.result.Outputs = append(r.result.Outputs, out)
	}

	if !r.cfg.Metadata || o.metadataStage == nil {
		return
	}
	out := OutputResult{Kind: pipeline.OutputMetadata}
	res, err := o.metadataStage.Execute(ctx, pipeline.MetadataInput{
		Dir:      r.cfg.OutputDir,
		Source:   r.result.Source,
		Stream:   r.stream,
		Duration: r.result.Duration,
		Native:   r.result.Native,
	})
	if err != nil {
		out.Err = err
		o.metrics.OutputFailed(string(out.Kind))
		o.logger.Warn(l10n.F("Output %s failed: %s", out.Kind, err))
	} else {
		out.Files = []string{res.Path}
		o.metrics.ArtifactsWritten(string(out.Kind), 1)
	}
	r.result.Outputs = append(r.result.Outputs, out)
}

func (o *Orchestrator) saveRunJSON(result *RunResult) {
	if !o.debugEnabled() {
		return
	}
	data, err := json.MarshalIndent(result.Report(), "", "  ")
	if err == nil {
		err = o.sink.SaveRunJSON(data)
	}
	if err != nil {
		o.logger.Warn(l10n.F("Failed to save run JSON: %s", err))
	}
}
