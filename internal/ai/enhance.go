package ai

import (
	"context"
	"fmt"
	"strings"

	"resumeghana/internal/resume"
)

// DefaultSectionType 为未指定 section_type 时的取值。
const DefaultSectionType = "experience"

// EnhanceSection rewrites one section of free text into polished, ATS-friendly prose.
// The reply is returned as-is without structural parsing.
func (s *Service) EnhanceSection(ctx context.Context, userID uint, sectionType, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", &resume.ValidationError{Fields: []string{"content"}}
	}
	if strings.TrimSpace(sectionType) == "" {
		sectionType = DefaultSectionType
	}
	user := fmt.Sprintf("Section: %s\n\nContent:\n%s", sectionType, content)
	return s.text(ctx, userID, sectionEnhancerPrompt, user, enhanceTemperature)
}
