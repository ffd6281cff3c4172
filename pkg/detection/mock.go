package detection

import (
	"image"
	"sync"

	"github.com/teslashibe/drone-observer/pkg/geom"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked. When nil, Verdict is returned.
	DetectFunc func(images []image.Image, pos geom.Vector3) (Result, error)

	// Verdict is returned when DetectFunc is nil.
	Verdict Result

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Detect invocation.
type MockCall struct {
	Images   int
	Position geom.Vector3
}

// NewMock creates a mock that reports the robot at pos.
func NewMock(pos geom.Vector3) *Mock {
	return &Mock{Verdict: Result{Found: true, Position: pos}}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		DetectFunc: func([]image.Image, geom.Vector3) (Result, error) {
			return Result{}, err
		},
	}
}

// Detect records the call and returns the configured verdict.
func (m *Mock) Detect(images []image.Image, pos geom.Vector3) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Images: len(images), Position: pos})
	fn := m.DetectFunc
	verdict := m.Verdict
	m.mu.Unlock()

	if fn != nil {
		return fn(images, pos)
	}
	return verdict, nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns how many times Detect was called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
