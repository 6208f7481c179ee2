package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/telemetry"
	"github.com/flemzord/crew/internal/tool"
)

// Dispatcher executes a tool call by name and always returns a string
// observation. *tool.Registry implements it.
type Dispatcher interface {
	Execute(ctx context.Context, name string, args json.RawMessage, tools []tool.Tool) string
}

// Options carries the optional collaborators of a Loop.
type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
}

// Loop drives the tool-use cycle. It holds no per-run state and is safe for
// concurrent use by independent invocations.
type Loop struct {
	adapters provider.Set
	dispatch Dispatcher
	config   LoopConfig
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// NewLoop creates a Loop over the given adapters and dispatcher.
func NewLoop(adapters provider.Set, d Dispatcher, cfg LoopConfig, opts Options) *Loop {
	l := &Loop{
		adapters: adapters,
		dispatch: d,
		config:   cfg.withDefaults(),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.tracer == nil {
		l.tracer = telemetry.Tracer()
	}
	return l
}

// Run executes one loop invocation. Each iteration performs exactly one
// provider round-trip and then runs the requested tools sequentially, in
// the order the provider listed them. Tool failures become observations;
// only provider and transport failures are returned as errors. Hitting the
// iteration cap is not an error: the result carries ExhaustedText.
func (l *Loop) Run(ctx context.Context, req Request, obs Observer) (Result, error) {
	kind := provider.KindForModel(req.Model)
	adapter, err := l.adapters.ForModel(req.Model)
	if err != nil {
		return Result{}, err
	}

	ctx, span := l.tracer.Start(ctx, telemetry.SpanRun, trace.WithAttributes(
		attribute.String("provider", string(kind)),
		attribute.String("model", req.Model),
		attribute.Int("tools", len(req.Tools)),
	))
	defer span.End()

	if l.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()
	}

	session := adapter.Open(provider.Request{
		APIKey:       req.APIKey,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		History:      req.History,
		Tools:        schemas(req.Tools),
	})

	res := Result{ToolCalls: []ToolCallRecord{}}

	for i := 0; i < l.config.MaxIterations; i++ {
		step, err := l.roundTrip(ctx, session, kind, i)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			l.metrics.ObserveRun(string(kind), telemetry.OutcomeError, i+1)
			return Result{}, err
		}

		res.Iterations = i + 1
		res.Usage.InputTokens += step.Usage.InputTokens
		res.Usage.OutputTokens += step.Usage.OutputTokens
		obs.emit(Event{Type: EventRoundTrip, Iteration: i, Text: step.Text})

		l.logger.Debug("agent round-trip",
			"provider", kind,
			"model", req.Model,
			"iteration", i,
			"tool_calls", len(step.ToolCalls),
			"done", step.Done,
		)

		if step.Done || len(step.ToolCalls) == 0 {
			res.Text = step.Text
			res.StopReason = StopReasonComplete
			l.finish(span, kind, telemetry.OutcomeComplete, &res, obs)
			return res, nil
		}

		results := make([]provider.ToolResult, 0, len(step.ToolCalls))
		for _, call := range step.ToolCalls {
			rec := ToolCallRecord{Tool: call.Name, Args: call.ArgumentText()}
			obs.emit(Event{Type: EventToolStart, Iteration: i, Tool: &rec})

			rec.Result = l.execute(ctx, call, req.Tools)
			res.ToolCalls = append(res.ToolCalls, rec)
			results = append(results, provider.ToolResult{Call: call, Content: rec.Result})

			done := rec
			obs.emit(Event{Type: EventToolEnd, Iteration: i, Tool: &done})
		}
		session.Feed(results)
	}

	l.logger.Warn("agent loop exhausted iterations",
		"provider", kind,
		"model", req.Model,
		"max_iterations", l.config.MaxIterations,
		"tool_calls", len(res.ToolCalls),
	)
	res.Text = ExhaustedText
	res.StopReason = StopReasonMaxIterations
	l.finish(span, kind, telemetry.OutcomeExhausted, &res, obs)
	return res, nil
}

func (l *Loop) finish(span trace.Span, kind provider.Kind, outcome string, res *Result, obs Observer) {
	span.SetAttributes(
		attribute.Int("iterations", res.Iterations),
		attribute.Int("tool_calls", len(res.ToolCalls)),
		attribute.String("stop_reason", string(res.StopReason)),
	)
	l.metrics.ObserveRun(string(kind), outcome, res.Iterations)
	final := *res
	obs.emit(Event{Type: EventDone, Iteration: res.Iterations - 1, Text: res.Text, Result: &final})
}

// roundTrip performs one provider step inside its own span.
func (l *Loop) roundTrip(ctx context.Context, s provider.Session, kind provider.Kind, iteration int) (provider.Step, error) {
	ctx, span := l.tracer.Start(ctx, telemetry.SpanProviderReq, trace.WithAttributes(
		attribute.String("provider", string(kind)),
		attribute.Int("iteration", iteration),
	))
	defer span.End()

	step, err := s.Step(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.metrics.ObserveRequest(string(kind), requestStatus(err))
		return provider.Step{}, err
	}
	span.SetAttributes(
		attribute.Int("tool_calls", len(step.ToolCalls)),
		attribute.Int("input_tokens", step.Usage.InputTokens),
		attribute.Int("output_tokens", step.Usage.OutputTokens),
	)
	l.metrics.ObserveRequest(string(kind), "ok")
	return step, nil
}

// execute dispatches one tool call inside its own span.
func (l *Loop) execute(ctx context.Context, call provider.ToolCall, tools []tool.Tool) string {
	ctx, span := l.tracer.Start(ctx, telemetry.SpanTool, trace.WithAttributes(
		attribute.String("tool", call.Name),
	))
	defer span.End()

	out := l.dispatch.Execute(ctx, call.Name, call.Arguments, tools)

	outcome := telemetry.OutcomeOK
	if strings.HasPrefix(out, "Error") {
		outcome = telemetry.OutcomeError
		span.SetStatus(codes.Error, "tool returned an error observation")
	}
	l.metrics.ObserveTool(call.Name, outcome)
	return out
}

func requestStatus(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return strconv.Itoa(perr.StatusCode)
	}
	return "transport"
}

// schemas projects tools onto their model-facing descriptions.
func schemas(tools []tool.Tool) []provider.ToolSchema {
	if len(tools) == 0 {
		return nil
	}
	out := make([]provider.ToolSchema, len(tools))
	for i, t := range tools {
		out[i] = provider.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		}
	}
	return out
}
