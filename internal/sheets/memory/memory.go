package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.ActivityWriter = (*Sheet)(nil)

// Sheet keeps appended activity rows in memory.
type Sheet struct {
	mu   sync.Mutex
	rows []core.Activity
	err  error
}

func New() *Sheet {
	return &Sheet{}
}

// FailWith makes subsequent appends return err. A nil err restores normal
// behaviour.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Sheet) AppendActivity(_ context.Context, a core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, a)
	return nil
}

// Rows returns a copy of everything appended so far, oldest first.
func (s *Sheet) Rows() []core.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Activity(nil), s.rows...)
}
