package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

type Selector string

const (
	Mock       Selector = "mock"
	Production Selector = "production"
)

const (
	DefaultMockURL       = "http://localhost:8001"
	DefaultProductionURL = "http://localhost:8000"
)

var ErrUnknownSelector = errors.New("unknown server selector")

// Selectors lists every valid selector.
func Selectors() []Selector {
	return []Selector{Mock, Production}
}

func (s Selector) Valid() bool {
	return s == Mock || s == Production
}

func ParseSelector(value string) (Selector, error) {
	sel := Selector(strings.ToLower(strings.TrimSpace(value)))
	if !sel.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSelector, value)
	}
	return sel, nil
}

// Registry maps selectors to backend base URLs. It is fixed after construction.
type Registry struct {
	urls map[Selector]string
}

// NewRegistry builds a registry. Empty URLs fall back to the defaults.
func NewRegistry(mockURL string, productionURL string) *Registry {
	if mockURL == "" {
		mockURL = DefaultMockURL
	}
	if productionURL == "" {
		productionURL = DefaultProductionURL
	}

	return &Registry{
		urls: map[Selector]string{
			Mock:       strings.TrimRight(mockURL, "/"),
			Production: strings.TrimRight(productionURL, "/"),
		},
	}
}

func DefaultRegistry() *Registry {
	return NewRegistry(DefaultMockURL, DefaultProductionURL)
}

func (r *Registry) BaseURL(sel Selector) (string, error) {
	url, ok := r.urls[sel]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSelector, string(sel))
	}
	return url, nil
}

// Selection is the server choice shared by the poller and the orchestrator.
type Selection struct {
	mu       sync.RWMutex
	selector Selector
}

func NewSelection(initial Selector) *Selection {
	if !initial.Valid() {
		initial = Mock
	}
	return &Selection{selector: initial}
}

func (s *Selection) Get() Selector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selector
}

// Set switches the active server. Requests already in flight keep their target.
func (s *Selection) Set(sel Selector) error {
	if !sel.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSelector, string(sel))
	}
	s.mu.Lock()
	s.selector = sel
	s.mu.Unlock()
	return nil
}
