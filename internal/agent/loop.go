// Package agent drives the bounded tool-calling turn: model steps
// alternating with tool execution until the model answers in plain
// text or the step budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/stream"
	"github.com/owenmorgan/calbot/internal/tools"
)

// maxTurnSteps limits how many model steps one turn may take. Each tool
// round costs a step, so a turn is at most four tool rounds followed by
// a closing text step.
const maxTurnSteps = 5

// userErrorMessage is the only error text a client ever sees; real
// causes go to the log.
const userErrorMessage = "Oops, an error occurred while processing your calendar request!"

// ErrTurnInProgress is returned when Run is called while a previous
// turn on the same loop is still active.
var ErrTurnInProgress = errors.New("a turn is already in progress")

// Loop phases, tracked for logging and to reject concurrent turns.
const (
	phaseIdle int32 = iota
	phaseAwaitingModel
	phaseExecutingTools
)

// StopReason explains why a turn ended.
type StopReason string

const (
	StopCompleted  StopReason = "completed"   // model produced a final text answer
	StopStepLimit  StopReason = "step_limit"  // budget exhausted with tool calls still pending
	StopAborted    StopReason = "aborted"     // client went away between steps
	StopModelError StopReason = "model_error" // provider call failed
)

// LoopConfig configures the turn loop.
type LoopConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	Reply      string
	Steps      int
	StopReason StopReason
	Transcript []llm.Message
	Usage      llm.Usage
	Duration   time.Duration
}

// Loop orchestrates model steps and tool dispatch for one conversation
// at a time.
type Loop struct {
	cfg      LoopConfig
	client   llm.Client
	registry *tools.Registry
	log      *logging.Logger

	phase atomic.Int32
}

// NewLoop creates a turn loop.
func NewLoop(cfg LoopConfig, client llm.Client, registry *tools.Registry, log *logging.Logger) *Loop {
	return &Loop{
		cfg:      cfg,
		client:   client,
		registry: registry,
		log:      log.Sub("agent"),
	}
}

// Run executes one turn over the given history, emitting progress
// events to sink as they happen. The final event is always done, even
// when the turn fails; terminal failures additionally emit an error
// event first and surface as the returned error.
//
// ctx cancellation is an abort: no further model steps start, but tool
// calls already dispatched run to completion and their results are
// recorded in the transcript.
func (l *Loop) Run(ctx context.Context, sess domain.Session, history []llm.Message, sink stream.Sink) (*TurnResult, error) {
	if !l.phase.CompareAndSwap(phaseIdle, phaseAwaitingModel) {
		return nil, ErrTurnInProgress
	}
	defer l.phase.Store(phaseIdle)
	defer sink(stream.Done())

	start := time.Now()
	system := BuildSystemPrompt(PromptConfig{
		UserEmail: sess.Email,
		Tools:     l.registry.Definitions(),
	})

	transcript := make([]llm.Message, len(history))
	copy(transcript, history)

	result := &TurnResult{StopReason: StopStepLimit}
	smoother := stream.NewSmoother(sink)

	for step := 0; step < maxTurnSteps; step++ {
		if ctx.Err() != nil {
			l.log.Info().Int("step", step).Msg("turn aborted before model step")
			result.StopReason = StopAborted
			break
		}
		result.Steps = step + 1
		l.phase.Store(phaseAwaitingModel)

		resp, err := l.modelStep(ctx, system, transcript, smoother)
		if err != nil {
			if ctx.Err() != nil {
				result.StopReason = StopAborted
				break
			}
			l.log.Error().Int("step", step).Err(err).Msg("model step failed")
			sink(stream.ErrorEvent(userErrorMessage))
			result.StopReason = StopModelError
			result.Transcript = transcript
			result.Duration = time.Since(start)
			return result, err
		}

		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens

		transcript = append(transcript, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			result.Reply = resp.Content
			result.StopReason = StopCompleted
			break
		}

		l.phase.Store(phaseExecutingTools)
		l.log.Info().Int("step", step).Int("toolCalls", len(resp.ToolCalls)).Msg("executing tool calls")

		results := l.dispatch(ctx, sess, resp.ToolCalls, sink)
		for _, tr := range results {
			transcript = append(transcript, tr.Message())
		}
	}

	result.Transcript = transcript
	result.Duration = time.Since(start)

	l.log.Info().
		Str("model", l.cfg.Model).
		Int("steps", result.Steps).
		Str("stopReason", string(result.StopReason)).
		Int("inputTokens", result.Usage.InputTokens).
		Int("outputTokens", result.Usage.OutputTokens).
		Dur("duration", result.Duration).
		Msg("turn finished")

	return result, nil
}

// modelStep streams one completion, forwarding text through the
// smoother, and returns the assembled response.
func (l *Loop) modelStep(ctx context.Context, system string, transcript []llm.Message, smoother *stream.Smoother) (*llm.CompletionResponse, error) {
	req := llm.CompletionRequest{
		Model:       l.cfg.Model,
		System:      system,
		Messages:    transcript,
		Tools:       l.registry.Definitions(),
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: l.cfg.Temperature,
	}

	ch, err := l.client.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model stream: %w", err)
	}

	var resp *llm.CompletionResponse
	for evt := range ch {
		switch evt.Type {
		case llm.EventDelta:
			smoother.Write(evt.Content)
		case llm.EventDone:
			resp = evt.Response
		case llm.EventError:
			smoother.Flush()
			return nil, fmt.Errorf("model stream: %s", evt.Error)
		}
	}
	smoother.Flush()

	if resp == nil {
		return nil, errors.New("model stream ended without a response")
	}
	return resp, nil
}

// dispatch runs the step's tool calls concurrently and joins them back
// in request order, so clients see starts and results in the same order
// the model asked for them. A detached context keeps in-flight calls
// running across a client abort.
func (l *Loop) dispatch(ctx context.Context, sess domain.Session, calls []llm.ToolCall, sink stream.Sink) []tools.Result {
	for _, call := range calls {
		sink(stream.ToolCallStart(call.ID, call.Name, call.Arguments))
	}

	execCtx := context.WithoutCancel(ctx)
	results := make([]tools.Result, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = l.registry.Execute(execCtx, sess, call)
			return nil
		})
	}
	g.Wait()

	for _, tr := range results {
		sink(stream.ToolCallResult(tr.CallID, string(tr.Tool), tr.Success, tr.Payload, tr.ErrorMessage))
	}
	return results
}
