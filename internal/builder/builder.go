// Package builder 组合 AI 增强与模板渲染，生成最终的简历 HTML。
package builder

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"resumeghana/internal/ai"
	"resumeghana/internal/completion"
	"resumeghana/internal/llmjson"
	"resumeghana/internal/metrics"
	"resumeghana/internal/render"
	"resumeghana/internal/resume"
)

const defaultFullName = "Your Name"

// markupTag 匹配以常见 HTML 元素开头的标签，属性必须带引号。
var markupTag = regexp.MustCompile(`(?i)^</?(?:a|b|br|div|em|h[1-6]|i|li|ol|p|script|span|strong|style|u|ul)(?:\s+[a-z-]+\s*=\s*(?:"[^"]*"|'[^']*'))*\s*/?>`)

// Enricher produces AI content for a resume.
type Enricher interface {
	Enrich(ctx context.Context, userID uint, in resume.Input) (ai.EnhancementResult, error)
}

// Renderer executes a named template.
type Renderer interface {
	Render(name string, ctx render.Context) (string, error)
}

// Result is the outcome of one build.
type Result struct {
	HTML     string
	Template string
	// Degraded 表示 AI 增强失败，内容回落到原始输入的机械格式化。
	Degraded bool
}

// Builder is safe for concurrent use.
type Builder struct {
	enricher Enricher
	renderer Renderer
	logger   *slog.Logger
	policy   *bluemonday.Policy
}

// New returns a Builder. A nil enricher renders every resume from raw input.
func New(enricher Enricher, renderer Renderer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		enricher: enricher,
		renderer: renderer,
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Build validates in, enriches it and renders templateID. Enrichment failures never
// fail the build; only validation and template errors are returned.
func (b *Builder) Build(ctx context.Context, userID uint, in resume.Input, templateID string, photo *Photo) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	enhanced, degraded := b.enrich(ctx, userID, in)

	summary := b.plain(enhanced.ProfessionalSummary)
	if summary == "" {
		summary = in.Objective()
	}

	bullets := make([]string, 0, len(enhanced.ExperienceBullets))
	for _, bullet := range enhanced.ExperienceBullets {
		if cleaned := b.plain(bullet); cleaned != "" {
			bullets = append(bullets, cleaned)
		}
	}
	experience := render.FormatExperience(in.Experience)
	if len(bullets) > 0 {
		experience = render.FormatBullets(bullets)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultFullName
	}

	tmpl := render.Resolve(templateID)
	out, err := b.renderer.Render(tmpl, render.Context{
		FullName:                name,
		Summary:                 summary,
		Experience:              experience,
		Skills:                  render.FormatSkills(in.Skills),
		Education:               render.FormatEducation(in.Education),
		CareerValue:             b.plain(enhanced.CareerValue),
		Email:                   in.Email,
		Phone:                   in.Phone,
		Country:                 in.Country,
		Links:                   in.Links,
		Role:                    in.Role,
		Certifications:          in.Certifications,
		IncludePhotoPlaceholder: photo != nil,
	})
	if err != nil {
		return Result{}, err
	}

	if photo != nil {
		// 只替换 img 的 src 属性；正文里的同名文本已被模板转义，不会匹配。
		out = strings.Replace(out, render.PhotoSrcAttr, `src="`+photo.DataURI()+`"`, 1)
	}
	return Result{HTML: out, Template: tmpl, Degraded: degraded}, nil
}

func (b *Builder) enrich(ctx context.Context, userID uint, in resume.Input) (ai.EnhancementResult, bool) {
	if b.enricher == nil {
		metrics.EnrichmentDegraded("disabled")
		return ai.EnhancementResult{}, true
	}
	res, err := b.enricher.Enrich(ctx, userID, in)
	if err == nil {
		return res, false
	}
	reason := degradeReason(err)
	b.logger.WarnContext(ctx, "resume enrichment failed, using raw content",
		slog.String("reason", reason),
		slog.Uint64("user_id", uint64(userID)),
		slog.Any("error", err),
	)
	metrics.EnrichmentDegraded(reason)
	return ai.EnhancementResult{}, true
}

// plain 去除 AI 文本中的 HTML 标签并还原实体，得到纯文本，由模板层统一转义。
// 不构成标签的 '<'（如 List<String>、a<b）按原文保留。
func (b *Builder) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(b.policy.Sanitize(escapeStrayAngles(s))))
}

func escapeStrayAngles(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && !markupTag.MatchString(s[i:]) {
			sb.WriteString("&lt;")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func degradeReason(err error) string {
	var apiErr *completion.APIError
	var cfgErr *completion.ConfigError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Kind.String()
	case errors.As(err, &cfgErr):
		return "config"
	case errors.Is(err, llmjson.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unknown"
}
