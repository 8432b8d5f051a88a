package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Set owns the processors of one bridge, in registration order.
//
// Thread Safety: All methods are safe for concurrent use.
type Set struct {
	mu         sync.RWMutex
	processors []Processor
	ids        map[string]struct{}
}

// NewSet creates an empty processor set.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// NewDefaultSet builds a set holding every built-in processor.
//
// Processors whose register definition cannot be bound are still added;
// they log the problem and stay inert.
func NewDefaultSet(opts Options) (*Set, error) {
	grid, err := NewGridChargeProcessor(opts)
	if err != nil {
		return nil, err
	}
	power, err := NewActivePowerRegulationProcessor(opts)
	if err != nil {
		return nil, err
	}
	battery, err := NewBatteryChargeCurrentProcessor(opts)
	if err != nil {
		return nil, err
	}

	s := NewSet()
	for _, p := range []Processor{grid, power, battery} {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a processor. IDs must be unique within the set.
func (s *Set) Add(p Processor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[p.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProcessor, p.ID())
	}
	s.ids[p.ID()] = struct{}{}
	s.processors = append(s.processors, p)
	return nil
}

// Initialize initialises every processor in order.
// A failing processor does not stop the others; all errors are joined.
func (s *Set) Initialize(ctx context.Context) error {
	var errs []error
	for _, p := range s.Processors() {
		if err := p.Initialize(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Processors returns the processors in registration order.
func (s *Set) Processors() []Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Processor, len(s.processors))
	copy(out, s.processors)
	return out
}

// Len returns the number of processors.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processors)
}

// describer is implemented by processors that expose binding details.
type describer interface {
	Info() Info
}

// Describe returns introspection data for every processor.
// Processors without binding details report only ID and description.
func (s *Set) Describe() []Info {
	processors := s.Processors()
	infos := make([]Info, 0, len(processors))
	for _, p := range processors {
		if d, ok := p.(describer); ok {
			infos = append(infos, d.Info())
			continue
		}
		infos = append(infos, Info{ID: p.ID(), Description: p.Description()})
	}
	return infos
}
