package ai

import (
	"context"
	"fmt"

	"resumeghana/internal/resume"
)

// BulletRewrite pairs an original bullet with its improved version.
type BulletRewrite struct {
	Original string `json:"original"`
	Improved string `json:"improved"`
}

// ReviewResult 为简历评审结果。Score 原样透传，不做范围校正。
type ReviewResult struct {
	Score            int             `json:"score"`
	Summary          string          `json:"summary"`
	Strengths        []string        `json:"strengths"`
	Weaknesses       []string        `json:"weaknesses"`
	MissingSkills    []string        `json:"missing_skills"`
	FormattingAdvice string          `json:"formatting_advice"`
	RewrittenBullets []BulletRewrite `json:"rewritten_bullets"`
}

// Review scores a resume and lists strengths, weaknesses and rewrites.
func (s *Service) Review(ctx context.Context, userID uint, in resume.Input) (ReviewResult, error) {
	if err := in.Validate(); err != nil {
		return ReviewResult{}, err
	}

	user := fmt.Sprintf("Name: %s\nTarget Role: %s\nSkills: %s\nExperience: %s\nEducation: %s",
		in.Name, in.Role, in.Skills, in.Experience, in.Education)

	obj, err := s.json(ctx, userID, reviewPrompt, user, reviewTemperature)
	if err != nil {
		return ReviewResult{}, err
	}

	rewrites := []BulletRewrite{}
	for _, r := range obj.Objects("rewritten_bullets") {
		rewrites = append(rewrites, BulletRewrite{
			Original: r.String("original"),
			Improved: r.String("improved"),
		})
	}

	return ReviewResult{
		Score:            obj.Int("score"),
		Summary:          obj.String("summary"),
		Strengths:        obj.Strings("strengths"),
		Weaknesses:       obj.Strings("weaknesses"),
		MissingSkills:    obj.Strings("missing_skills"),
		FormattingAdvice: obj.String("formatting_advice"),
		RewrittenBullets: rewrites,
	}, nil
}
