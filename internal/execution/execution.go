// Package execution submits built query requests to the backend, retrying
// once with the fallback strategy and recording every attempt.
package execution

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kyleking/catalog-chat/internal/draft"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/logging"
	"github.com/kyleking/catalog-chat/internal/remote"
	"github.com/kyleking/catalog-chat/internal/storage"
)

// Execution strategies, named after their endpoint paths
const (
	StrategyPrimary = "ask/fc/args"
	StrategyAsk     = "ask"
)

// FallbackStrategy returns the strategy tried after preferred fails
func FallbackStrategy(preferred string) string {
	switch preferred {
	case StrategyPrimary:
		return StrategyAsk
	case StrategyAsk:
		return StrategyPrimary
	default:
		return StrategyPrimary
	}
}

// ValidStrategy reports whether s names a known endpoint
func ValidStrategy(s string) bool {
	return s == StrategyPrimary || s == StrategyAsk
}

// Settings are the user preferences that shape a request
type Settings struct {
	Explain  bool   `json:"explain"`
	Strategy string `json:"strategy"`
}

// DefaultSettings returns explain off and the primary strategy
func DefaultSettings() Settings {
	return Settings{Strategy: StrategyPrimary}
}

// Backend executes one request with one strategy
type Backend interface {
	Execute(ctx context.Context, strategy string, req draft.Request) (*remote.Response, error)
}

// Recorder persists execution attempts
type Recorder interface {
	RecordExecution(ctx context.Context, rec storage.ExecutionRecord) error
}

// Attempt is one call made while running a request
type Attempt struct {
	Strategy string
	Duration time.Duration
	Err      error
}

// Outcome is the result of Run
type Outcome struct {
	Strategy   string
	AnswerText string
	Preview    []map[string]interface{}
	Attempts   []Attempt
}

// Executor runs requests against a Backend
type Executor struct {
	backend  Backend
	recorder Recorder
	validate *validator.Validate
	settings Settings
}

// ExecutorOption customizes an Executor
type ExecutorOption func(*Executor)

// WithRecorder records every attempt in r
func WithRecorder(r Recorder) ExecutorOption {
	return func(e *Executor) {
		e.recorder = r
	}
}

// WithSettings sets the initial preferences
func WithSettings(s Settings) ExecutorOption {
	return func(e *Executor) {
		e.settings = s
	}
}

// NewExecutor creates an executor for backend
func NewExecutor(backend Backend, opts ...ExecutorOption) *Executor {
	e := &Executor{
		backend:  backend,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		settings: DefaultSettings(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if !ValidStrategy(e.settings.Strategy) {
		e.settings.Strategy = StrategyPrimary
	}

	return e
}

// Settings returns the current preferences
func (e *Executor) Settings() Settings {
	return e.settings
}

// SetExplain toggles the explain flag sent with requests
func (e *Executor) SetExplain(on bool) {
	e.settings.Explain = on
}

// SetStrategy changes the preferred strategy
func (e *Executor) SetStrategy(s string) error {
	if !ValidStrategy(s) {
		return errors.Newf(errors.ErrTypeValidation, "unknown strategy %q", s).
			WithSuggestion("Use " + StrategyPrimary + " or " + StrategyAsk)
	}

	e.settings.Strategy = s

	return nil
}

// Run validates req and submits it with the preferred strategy. A transport
// failure or a backend error triggers exactly one retry with the fallback
// strategy. The returned error is the last attempt's.
func (e *Executor) Run(ctx context.Context, req draft.Request) (*Outcome, error) {
	req.Explain = e.settings.Explain

	if err := e.validate.Struct(req); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeValidation, "invalid execution request")
	}

	outcome := &Outcome{}
	strategies := []string{e.settings.Strategy}

	if fb := FallbackStrategy(e.settings.Strategy); fb != e.settings.Strategy {
		strategies = append(strategies, fb)
	}

	var lastErr error

	for _, strategy := range strategies {
		resp, attempt := e.attempt(ctx, strategy, req)
		outcome.Attempts = append(outcome.Attempts, attempt)

		if attempt.Err == nil {
			outcome.Strategy = strategy
			outcome.AnswerText = resp.Text()
			outcome.Preview = resp.ResultPreview

			return outcome, nil
		}

		lastErr = attempt.Err

		if ctx.Err() != nil {
			break
		}

		logging.WithFields(map[string]interface{}{
			"strategy": strategy,
			"table":    req.TableIdentifier,
		}).WithError(attempt.Err).Warn("Execution attempt failed")
	}

	return outcome, lastErr
}

func (e *Executor) attempt(ctx context.Context, strategy string, req draft.Request) (*remote.Response, Attempt) {
	start := time.Now()
	resp, err := e.backend.Execute(ctx, strategy, req)
	a := Attempt{Strategy: strategy, Duration: time.Since(start), Err: err}

	if err == nil && resp == nil {
		a.Err = errors.New(errors.ErrTypeExecution, "empty response")
	}

	e.record(ctx, req, resp, a)

	return resp, a
}

func (e *Executor) record(ctx context.Context, req draft.Request, resp *remote.Response, a Attempt) {
	if e.recorder == nil {
		return
	}

	payload, _ := json.Marshal(req)

	rec := storage.ExecutionRecord{
		ID:         uuid.New().String(),
		TableID:    req.TableIdentifier,
		Strategy:   a.Strategy,
		Question:   req.Question,
		Payload:    string(payload),
		Status:     storage.StatusSuccess,
		DurationMs: float64(a.Duration.Microseconds()) / 1000,
		CreatedAt:  time.Now().UTC(),
	}

	if req.ConversationID != nil {
		rec.ConversationID = *req.ConversationID
	}

	if resp != nil {
		rec.AnswerText = resp.Text()
		rec.RowCount = len(resp.ResultPreview)
	}

	if a.Err != nil {
		rec.Status = storage.StatusError
		rec.Error = errors.UserMessage(a.Err)
	}

	if err := e.recorder.RecordExecution(context.WithoutCancel(ctx), rec); err != nil {
		logging.WithError(err).Warn("Failed to record execution")
	}
}

// IsTransport reports whether err came from the transport rather than the backend
func IsTransport(err error) bool {
	return errors.IsType(err, errors.ErrTypeNetwork)
}

// Humanize turns a backend error for a free-text question into guidance
func Humanize(msg string) string {
	m := strings.ToLower(msg)

	if strings.Contains(m, "sql") && (strings.Contains(m, "inseguro") || strings.Contains(m, "unsafe")) {
		return "Não consegui entender sua pergunta com segurança para consultar a base.\n\n" +
			"Tente reformular deixando mais explícito:\n" +
			"• qual período (ex.: 2024-04 a 2024-06)\n" +
			"• qual recorte (ex.: unidade de conservação, município)\n" +
			"• qual saída (ex.: contagem, lista, top 10)\n"
	}

	return "Não consegui entender sua pergunta do jeito que ela foi escrita.\n\n" +
		"Tente reformular com um pouco mais de contexto (o que exatamente você quer ver na tabela)."
}
