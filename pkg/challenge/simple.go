package challenge

import (
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

// SimpleState has nothing to render beyond the dismiss button.
type SimpleState struct{}

func (SimpleState) Type() models.DismissType { return models.DismissSimple }

// Simple completes on the first Tap.
type Simple struct {
	done bool
}

func (s *Simple) Type() models.DismissType { return models.DismissSimple }

func (s *Simple) Start(time.Time) []Effect {
	s.done = false
	return nil
}

func (s *Simple) Update(in Input) []Effect {
	if _, ok := in.(Tap); !ok || s.done {
		return nil
	}
	s.done = true
	return []Effect{Complete{}}
}

func (s *Simple) Completed() bool { return s.done }

func (s *Simple) State() State { return SimpleState{} }
