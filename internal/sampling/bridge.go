// Package sampling lets server-side logic request text generation from the
// client driving the current session. The client registers a transport once
// at session setup; until then every generation attempt fails fast and
// callers fall back to their own deterministic output.
package sampling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/telemetry"
)

var (
	// ErrUnavailable means no transport has been registered for this session.
	ErrUnavailable = errors.New("sampling transport not registered")
	// ErrTimeout means the client did not answer within the request deadline.
	ErrTimeout = errors.New("sampling request timed out")
)

// DefaultTimeout bounds how long a single generation request may take.
const DefaultTimeout = 30 * time.Second

// Request is one outgoing generation call. The ID is unique for the life of
// the process; transports that deliver out of band use it to join the reply
// back to the waiting call.
type Request struct {
	ID     string
	Params protocol.CreateMessageParams
}

// Transport delivers a sampling request to the connected client and returns
// its reply. Implementations should honor ctx cancellation but are not
// required to; the bridge abandons slow calls on its own.
type Transport interface {
	CreateMessage(ctx context.Context, req Request) (protocol.CreateMessageResult, error)
}

// Bridge holds the session's single transport slot and exposes the
// generation primitives tool handlers build on.
type Bridge struct {
	mu        sync.Mutex
	transport Transport

	timeout time.Duration
	log     *logrus.Entry
	metrics *telemetry.Metrics
}

// New returns a bridge with no transport registered. metrics may be nil.
func New(log *logrus.Entry, metrics *telemetry.Metrics) *Bridge {
	return &Bridge{timeout: DefaultTimeout, log: log, metrics: metrics}
}

// Register installs the session transport. A bridge accepts exactly one
// transport; a second registration is a wiring mistake and is rejected.
func (b *Bridge) Register(t Transport) error {
	if t == nil {
		return errors.New("sampling transport is nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.transport != nil {
		return errors.New("sampling transport already registered")
	}
	b.transport = t
	return nil
}

// Available reports whether a transport has been registered.
func (b *Bridge) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transport != nil
}

// Analyze asks the client for a free-form analysis of a prompt plus an
// optional context payload. The reply is returned verbatim.
func (b *Bridge) Analyze(ctx context.Context, prompt string, payload any) (string, error) {
	text := prompt
	if payload != nil {
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode analysis context: %w", err)
		}
		text = prompt + "\n\nContext:\n" + string(encoded)
	}

	return b.generate(ctx, text, genOptions{
		system:       "You are a supply chain analyst. Ground every observation in the data provided.",
		maxTokens:    1000,
		temperature:  0.7,
		intelligence: true,
	})
}

// Assessment is the outcome of a risk-scoring call. Score is always within
// [0,100]; Outcome records which parsing tier produced it.
type Assessment struct {
	Score     int
	Reasoning string
	Outcome   Outcome
}

// ScoreRisk asks the client to rate the risk of a subject from 0 to 100.
// Unparseable replies degrade through the tiers described on Outcome rather
// than failing; only transport problems surface as errors.
func (b *Bridge) ScoreRisk(ctx context.Context, subject string, payload any) (Assessment, error) {
	var sb strings.Builder
	sb.WriteString("Rate the risk of the following subject on a scale of 0 (no risk) to 100 (certain failure).\n")
	sb.WriteString("Subject: ")
	sb.WriteString(subject)
	sb.WriteString("\n")
	if payload != nil {
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return Assessment{}, fmt.Errorf("encode risk context: %w", err)
		}
		sb.WriteString("Context:\n")
		sb.Write(encoded)
		sb.WriteString("\n")
	}
	sb.WriteString(`Reply with JSON only: {"score": <integer 0-100>, "reasoning": "<short explanation>"}`)

	reply, err := b.generate(ctx, sb.String(), genOptions{
		system:      "You are a logistics risk analyst. Be conservative and concrete.",
		maxTokens:   400,
		temperature: 0.2,
	})
	if err != nil {
		return Assessment{}, err
	}

	assessment := parseAssessment(reply)
	if b.log != nil && assessment.Outcome != OutcomeStructured {
		b.log.WithField("outcome", string(assessment.Outcome)).Debug("risk reply degraded to fallback parse")
	}
	return assessment, nil
}

// Choice is the outcome of a forced-choice call. Option is always one of the
// options supplied by the caller.
type Choice struct {
	Option    string
	Rationale string
}

// ChooseOption presents a lettered list of options and asks the client to
// pick one. Replies that name no in-range letter fall back to the first
// option; only transport problems surface as errors.
func (b *Bridge) ChooseOption(ctx context.Context, question string, options []string) (Choice, error) {
	if len(options) == 0 {
		return Choice{}, errors.New("choose: at least one option required")
	}
	if len(options) > 26 {
		return Choice{}, fmt.Errorf("choose: %d options exceed the lettered range", len(options))
	}

	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString("\n\nOptions:\n")
	for i, opt := range options {
		sb.WriteByte(byte('A' + i))
		sb.WriteString(". ")
		sb.WriteString(opt)
		sb.WriteString("\n")
	}
	sb.WriteString("\nAnswer with the single letter of your choice, then a one-sentence justification.")

	reply, err := b.generate(ctx, sb.String(), genOptions{
		system:      "You are a logistics advisor choosing between concrete alternatives.",
		maxTokens:   300,
		temperature: 0.2,
		speed:       true,
	})
	if err != nil {
		return Choice{}, err
	}

	picked, ok := chooseByLetter(reply, len(options))
	if !ok {
		picked = 0
		if b.log != nil {
			b.log.Debug("choice reply named no in-range letter, defaulting to first option")
		}
	}
	return Choice{Option: options[picked], Rationale: strings.TrimSpace(reply)}, nil
}

type genOptions struct {
	system       string
	maxTokens    int
	temperature  float64
	speed        bool
	intelligence bool
}

// generate issues one sampling request and races it against the bridge
// timeout. The result channel is buffered so a transport that answers after
// the deadline completes into the buffer and is discarded; the original
// caller never sees a late reply.
func (b *Bridge) generate(ctx context.Context, text string, opts genOptions) (string, error) {
	b.mu.Lock()
	transport := b.transport
	b.mu.Unlock()
	if transport == nil {
		b.metrics.RecordSampling(ctx, "unavailable")
		return "", ErrUnavailable
	}

	temp := opts.temperature
	req := Request{
		ID: uuid.NewString(),
		Params: protocol.CreateMessageParams{
			Messages: []protocol.SamplingMessage{{
				Role:    "user",
				Content: protocol.ContentPart{Type: "text", Text: text},
			}},
			SystemPrompt:     opts.system,
			Temperature:      &temp,
			MaxTokens:        opts.maxTokens,
			ModelPreferences: preferences(opts),
		},
	}

	type outcome struct {
		result protocol.CreateMessageResult
		err    error
	}
	results := make(chan outcome, 1)

	go func() {
		result, err := transport.CreateMessage(ctx, req)
		results <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case out := <-results:
		if out.err != nil {
			b.metrics.RecordSampling(ctx, "error")
			return "", fmt.Errorf("sampling request %s: %w", req.ID, out.err)
		}
		b.metrics.RecordSampling(ctx, "ok")
		return out.result.Content.Text, nil
	case <-timer.C:
		b.metrics.RecordSampling(ctx, "timeout")
		return "", fmt.Errorf("sampling request %s gave up after %s: %w", req.ID, b.timeout, ErrTimeout)
	case <-ctx.Done():
		b.metrics.RecordSampling(ctx, "canceled")
		return "", ctx.Err()
	}
}

func preferences(opts genOptions) *protocol.ModelPreferences {
	if !opts.speed && !opts.intelligence {
		return nil
	}
	prefs := &protocol.ModelPreferences{}
	high := 0.8
	if opts.speed {
		prefs.SpeedPriority = &high
	}
	if opts.intelligence {
		prefs.IntelligencePriority = &high
	}
	return prefs
}
