// Package mock provides a deterministic language model for tests.
package mock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNoScript is returned when no rule or queued response matches a call.
var ErrNoScript = errors.New("mock: no scripted response")

// CapturedCall records one CallModel invocation
type CapturedCall struct {
	SystemPrompt string        `json:"system_prompt"`
	UserPrompt   string        `json:"user_prompt"`
	Response     string        `json:"response"`
	Error        error         `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Elapsed      time.Duration `json:"elapsed"`
}

type rule struct {
	match    string
	response string
	err      error
	delay    time.Duration
}

// ScriptedModel answers CallModel from rules matched against the prompt text,
// then from a FIFO queue, then from Default.
type ScriptedModel struct {
	mu      sync.Mutex
	rules   []rule
	queue   []string
	calls   []CapturedCall
	Default string
}

// NewScriptedModel creates an empty model.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// When answers response to every call whose system or user prompt contains match.
// Rules are tried in registration order.
func (m *ScriptedModel) When(match, response string) *ScriptedModel {
	return m.add(rule{match: match, response: response})
}

// WhenError fails every call whose prompts contain match.
func (m *ScriptedModel) WhenError(match string, err error) *ScriptedModel {
	return m.add(rule{match: match, err: err})
}

// WhenSlow answers like When after delay, or fails when ctx ends first.
func (m *ScriptedModel) WhenSlow(match, response string, delay time.Duration) *ScriptedModel {
	return m.add(rule{match: match, response: response, delay: delay})
}

// Enqueue adds responses returned in order to calls no rule matches.
func (m *ScriptedModel) Enqueue(responses ...string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
	return m
}

func (m *ScriptedModel) add(r rule) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
	return m
}

// CallModel implements the inference port.
func (m *ScriptedModel) CallModel(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	r, err := m.next(systemPrompt, userPrompt)

	if err == nil && r.delay > 0 {
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
		}
	}
	if err == nil {
		err = r.err
	}

	out := ""
	if err == nil {
		out = r.response
	}

	m.mu.Lock()
	m.calls = append(m.calls, CapturedCall{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Response:     out,
		Error:        err,
		Timestamp:    start,
		Elapsed:      time.Since(start),
	})
	m.mu.Unlock()

	return out, err
}

func (m *ScriptedModel) next(systemPrompt, userPrompt string) (rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rules {
		if strings.Contains(systemPrompt, r.match) || strings.Contains(userPrompt, r.match) {
			return r, nil
		}
	}
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return rule{response: resp}, nil
	}
	if m.Default != "" {
		return rule{response: m.Default}, nil
	}
	return rule{}, fmt.Errorf("%w (user prompt %.60q)", ErrNoScript, userPrompt)
}

// Calls returns a copy of every recorded call.
func (m *ScriptedModel) Calls() []CapturedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CapturedCall(nil), m.calls...)
}

// CallCount returns the number of CallModel invocations.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset forgets recorded calls; rules and queue are kept.
func (m *ScriptedModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
