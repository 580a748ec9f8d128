// Package ai implements the prompt-driven resume transformations on top of a
// text-completion capability.
package ai

import (
	"context"
	"log/slog"

	"resumeghana/internal/completion"
	"resumeghana/internal/llmjson"
)

// Completer is the single capability every component depends on.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64) (completion.Result, error)
}

// UsageRecorder receives token usage after each successful completion made for a user.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, userID uint, tokens int) error
}

// 各调用使用的采样温度。
const (
	enhanceTemperature = 0.6
	reviewTemperature  = 0.6
	suggestTemperature = 0.7
	enrichTemperature  = 0.5
)

// Service holds no per-request state and is safe for concurrent use.
type Service struct {
	completer Completer
	usage     UsageRecorder
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithUsageRecorder enables token metering.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(s *Service) { s.usage = r }
}

// WithLogger sets the logger used for metering failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Service backed by c.
func New(c Completer, opts ...Option) *Service {
	s := &Service{completer: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) text(ctx context.Context, userID uint, system, user string, temperature float64) (string, error) {
	res, err := s.completer.Complete(ctx, system, user, temperature)
	if err != nil {
		return "", err
	}
	s.meter(ctx, userID, res.Tokens)
	return res.Text, nil
}

func (s *Service) json(ctx context.Context, userID uint, system, user string, temperature float64) (llmjson.Object, error) {
	raw, err := s.text(ctx, userID, system+jsonGuidance, user, temperature)
	if err != nil {
		return nil, err
	}
	return llmjson.ParseReply(raw)
}

// meter 记录 token 用量；失败只记日志，不影响调用结果。
func (s *Service) meter(ctx context.Context, userID uint, tokens int) {
	if s.usage == nil || userID == 0 {
		return
	}
	if err := s.usage.RecordUsage(ctx, userID, tokens); err != nil {
		s.logger.Warn("record ai usage failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("tokens", tokens),
			slog.Any("error", err),
		)
	}
}
