package oracle

import (
	"context"
	"sync"
)

// MockOracle returns scripted responses in order, cycling when exhausted.
// It exists for tests and for dry runs without API keys; it is wired in as a
// regular configured oracle type, never through a process-wide switch.
type MockOracle struct {
	id        string
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

// NewMock creates a mock oracle that cycles through the given responses.
func NewMock(id string, responses ...string) *MockOracle {
	return &MockOracle{id: id, responses: responses}
}

// NewFailingMock creates a mock oracle whose every call fails with err.
func NewFailingMock(id string, err error) *MockOracle {
	return &MockOracle{id: id, err: err}
}

func (o *MockOracle) ID() string { return o.id }

func (o *MockOracle) Call(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return "", o.err
	}
	if len(o.responses) == 0 {
		return "[]", nil
	}
	resp := o.responses[o.calls%len(o.responses)]
	o.calls++
	return resp, nil
}

// Calls reports how many calls have been served.
func (o *MockOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
