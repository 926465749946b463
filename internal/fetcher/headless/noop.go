package headless

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Noop.
var ErrDisabled = errors.New("headless renderer disabled")

// Noop implements crawler.TitleRenderer when headless rendering is turned off.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Title always fails with ErrDisabled.
func (Noop) Title(_ context.Context, _ string) (string, error) {
	return "", ErrDisabled
}
