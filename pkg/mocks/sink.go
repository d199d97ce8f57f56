package mocks

import (
	"image"
	"sync"

	"github.com/user/vidsprite/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	SampledFrames  map[string]map[int]image.Image
	AnnotatedPages map[int]image.Image
	RunJSON        []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		SampledFrames:  make(map[string]map[int]image.Image),
		AnnotatedPages: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveSampledFrame(output string, index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SampledFrames[output] == nil {
		m.SampledFrames[output] = make(map[int]image.Image)
	}
	m.SampledFrames[output][index] = img
	return nil
}

func (m *DebugSink) SaveAnnotatedPage(page int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnnotatedPages[page] = img
	return nil
}

func (m *DebugSink) SaveRunJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunJSON = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
