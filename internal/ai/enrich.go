package ai

import (
	"context"
	"fmt"
	"strings"

	"resumeghana/internal/resume"
)

// EnhancementResult 是生成简历时用于填充模板的 AI 内容。
type EnhancementResult struct {
	ProfessionalSummary string   `json:"professional_summary"`
	ExperienceBullets   []string `json:"experience_bullets"`
	CareerValue         string   `json:"career_value"`
}

// Enrich produces the summary, bullets and career value used by the builder.
func (s *Service) Enrich(ctx context.Context, userID uint, in resume.Input) (EnhancementResult, error) {
	if err := in.Validate(); err != nil {
		return EnhancementResult{}, err
	}

	obj, err := s.json(ctx, userID, enrichmentPrompt, enrichmentRequest(in), enrichTemperature)
	if err != nil {
		return EnhancementResult{}, err
	}
	return EnhancementResult{
		ProfessionalSummary: strings.TrimSpace(obj.String("professional_summary")),
		ExperienceBullets:   obj.Strings("experience_bullets"),
		CareerValue:         strings.TrimSpace(obj.String("career_value")),
	}, nil
}

func enrichmentRequest(in resume.Input) string {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = "Professional"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Target Role: %s\n", role)
	fmt.Fprintf(&b, "Career Level: %s\n", in.Level())
	fmt.Fprintf(&b, "Years of Experience: %s\n", in.YearsExperience)
	fmt.Fprintf(&b, "Skills: %s\n", in.Skills)
	fmt.Fprintf(&b, "Career Objective: %s\n", in.Objective())
	fmt.Fprintf(&b, "Education: %s\n\n", in.Education)
	fmt.Fprintf(&b, "Raw Experience:\n%s", in.Experience)
	return b.String()
}
