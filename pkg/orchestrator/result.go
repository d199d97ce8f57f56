package orchestrator

import (
	"time"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
)

// State is the lifecycle state of a run.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateDraining
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OutputResult reports one output of a run.
type OutputResult struct {
	Kind   pipeline.OutputKind
	Files  []string
	Frames int   // frames accepted by the output's sampler
	Err    error // nil on success
}

// RunResult contains the results of a run for reporting and summary generation.
type RunResult struct {
	RunID string
	Input string
	State State

	Source   ports.SourceInfo
	Stream   ports.StreamInfo
	Duration mediatime.Time
	Native   pipeline.Dimension // size of the first decoded frame

	Packets      int
	Decoded      int
	DecodeErrors int
	Truncated    bool

	Outputs []OutputResult
	Elapsed time.Duration
}

// Failed reports whether any output ended in error.
func (r RunResult) Failed() bool {
	return len(r.FailedOutputs()) > 0
}

// FailedOutputs returns the outputs that ended in error.
func (r RunResult) FailedOutputs() []OutputResult {
	var failed []OutputResult
	for _, o := range r.Outputs {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Output returns the result for kind.
func (r RunResult) Output(kind pipeline.OutputKind) (OutputResult, bool) {
	for _, o := range r.Outputs {
		if o.Kind == kind {
			return o, true
		}
	}
	return OutputResult{}, false
}

// Report is the JSON form of a RunResult saved to the debug sink.
type Report struct {
	RunID        string         `json:"run_id"`
	Input        string         `json:"input"`
	State        string         `json:"state"`
	Container    string         `json:"container"`
	Codec        string         `json:"codec"`
	DurationMs   int64          `json:"duration_ms"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Packets      int            `json:"packets"`
	Decoded      int            `json:"decoded"`
	DecodeErrors int            `json:"decode_errors"`
	Truncated    bool           `json:"truncated"`
	ElapsedMs    int64          `json:"elapsed_ms"`
	Outputs      []OutputReport `json:"outputs"`
}

// OutputReport is the JSON form of an OutputResult.
type OutputReport struct {
	Kind   string   `json:"kind"`
	Files  []string `json:"files"`
	Frames int      `json:"frames"`
	Error  string   `json:"error,omitempty"`
}

// Report converts the result to its JSON form.
func (r RunResult) Report() Report {
	rep := Report{
		RunID:        r.RunID,
		Input:        r.Input,
		State:        r.State.String(),
		Container:    r.Source.Container,
		Codec:        r.Stream.Codec,
		DurationMs:   r.Duration.Milliseconds(),
		Width:        r.Native.Width,
		Height:       r.Native.Height,
		Packets:      r.Packets,
		Decoded:      r.Decoded,
		DecodeErrors: r.DecodeErrors,
		Truncated:    r.Truncated,
		ElapsedMs:    r.Elapsed.Milliseconds(),
		Outputs:      make([]OutputReport, 0, len(r.Outputs)),
	}
	for _, o := range r.Outputs {
		or := OutputReport{Kind: string(o.Kind), Files: o.Files, Frames: o.Frames}
		if o.Err != nil {
			or.Error = o.Err.Error()
		}
		rep.Outputs = append(rep.Outputs, or)
	}
	return rep
}
