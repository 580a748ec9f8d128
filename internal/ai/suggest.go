package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"resumeghana/internal/llmjson"
	"resumeghana/internal/resume"
)

// StepKind 决定某一步骤走向导提示还是增强提示。
type StepKind int

const (
	StepWizard StepKind = iota + 1
	StepEnhancer
)

func (k StepKind) String() string {
	switch k {
	case StepWizard:
		return "wizard"
	case StepEnhancer:
		return "enhancer"
	}
	return "unknown"
}

// ClassifyStep routes steps 1 and 3 to the wizard; every other step, including
// out-of-range values, goes to the enhancer.
func ClassifyStep(step int) StepKind {
	if step == 1 || step == 3 {
		return StepWizard
	}
	return StepEnhancer
}

// WizardSuggestion is feedback on the data entered for one form step.
type WizardSuggestion struct {
	Review         string   `json:"review"`
	Suggestions    []string `json:"suggestions"`
	Keywords       []string `json:"keywords"`
	RefinedContent string   `json:"refined_content"`
}

type ExperienceSuggestion struct {
	Role              string   `json:"role"`
	EnhancedBullets   []string `json:"enhanced_bullets"`
	SuggestedKeywords []string `json:"suggested_keywords"`
}

type SkillsSuggestion struct {
	SuggestedAdditional []string `json:"suggested_additional"`
}

type SummarySuggestion struct {
	SuggestedAbilities []string `json:"suggested_abilities"`
	SuggestedObjective string   `json:"suggested_objective"`
}

type OptionalSectionsSuggestion struct {
	SuggestedLinks []string `json:"suggested_links"`
}

// EnhancerSuggestion holds click-to-add suggestions across the whole resume.
type EnhancerSuggestion struct {
	Experience       []ExperienceSuggestion     `json:"experience"`
	Skills           SkillsSuggestion           `json:"skills"`
	Summary          SummarySuggestion          `json:"summary"`
	OptionalSections OptionalSectionsSuggestion `json:"optional_sections"`
}

// Suggestion 为两种建议之一，Kind 指明哪一个字段有效。
type Suggestion struct {
	Kind     StepKind
	Step     int
	Wizard   *WizardSuggestion
	Enhancer *EnhancerSuggestion
}

// MarshalJSON emits only the active variant.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	if s.Kind == StepWizard && s.Wizard != nil {
		return json.Marshal(s.Wizard)
	}
	if s.Enhancer != nil {
		return json.Marshal(s.Enhancer)
	}
	return []byte("{}"), nil
}

// Suggest returns wizard feedback or enhancer suggestions for the given form step.
// No fields are required.
func (s *Service) Suggest(ctx context.Context, userID uint, step int, form map[string]any) (Suggestion, error) {
	if form == nil {
		form = map[string]any{}
	}
	kind := ClassifyStep(step)
	out := Suggestion{Kind: kind, Step: step}

	if kind == StepWizard {
		data, err := json.Marshal(form)
		if err != nil {
			return Suggestion{}, fmt.Errorf("encode form data: %w", err)
		}
		user := fmt.Sprintf("Current Step: %d\nUser Data: %s", step, data)
		obj, err := s.json(ctx, userID, wizardPrompt, user, suggestTemperature)
		if err != nil {
			return Suggestion{}, err
		}
		out.Wizard = &WizardSuggestion{
			Review:         obj.String("review"),
			Suggestions:    obj.Strings("suggestions"),
			Keywords:       obj.Strings("keywords"),
			RefinedContent: obj.String("refined_content"),
		}
		return out, nil
	}

	payload, err := json.Marshal(newEnhancerPayload(form))
	if err != nil {
		return Suggestion{}, fmt.Errorf("encode enhancer payload: %w", err)
	}
	obj, err := s.json(ctx, userID, enhancerPrompt, string(payload), suggestTemperature)
	if err != nil {
		return Suggestion{}, err
	}
	out.Enhancer = decodeEnhancer(obj)
	return out, nil
}

func decodeEnhancer(obj llmjson.Object) *EnhancerSuggestion {
	experience := []ExperienceSuggestion{}
	for _, e := range obj.Objects("experience") {
		experience = append(experience, ExperienceSuggestion{
			Role:              e.String("role"),
			EnhancedBullets:   e.Strings("enhanced_bullets"),
			SuggestedKeywords: e.Strings("suggested_keywords"),
		})
	}
	summary := obj.Object("summary")
	return &EnhancerSuggestion{
		Experience: experience,
		Skills: SkillsSuggestion{
			SuggestedAdditional: obj.Object("skills").Strings("suggested_additional"),
		},
		Summary: SummarySuggestion{
			SuggestedAbilities: summary.Strings("suggested_abilities"),
			SuggestedObjective: summary.String("suggested_objective"),
		},
		OptionalSections: OptionalSectionsSuggestion{
			SuggestedLinks: obj.Object("optional_sections").Strings("suggested_links"),
		},
	}
}

// enhancerPayload 是发送给增强提示的简历结构，由扁平表单字段映射而来。
type enhancerPayload struct {
	Identity         payloadIdentity  `json:"identity"`
	SummaryInputs    payloadSummary   `json:"summary_inputs"`
	Experience       []payloadRole    `json:"experience"`
	Skills           payloadSkills    `json:"skills"`
	OptionalSections payloadOptionals `json:"optional_sections"`
	JobType          string           `json:"job_type"`
}

type payloadIdentity struct {
	Name        string `json:"name"`
	TargetTitle string `json:"target_title"`
	JobLevel    string `json:"job_level"`
	JobLocation string `json:"job_location"`
}

type payloadSummary struct {
	Industry        string `json:"industry"`
	YearsExperience string `json:"years_experience"`
	CareerObjective string `json:"career_objective"`
	Abilities       string `json:"abilities"`
}

type payloadRole struct {
	Role          string   `json:"role"`
	BulletIntents []string `json:"bullet_intents"`
	Seniority     string   `json:"seniority"`
}

type payloadSkills struct {
	TechnicalOrProfessional []string `json:"technical_or_professional"`
	Soft                    []string `json:"soft"`
}

type payloadOptionals struct {
	Certifications     []string          `json:"certifications"`
	RelevantCoursework []string          `json:"relevant_coursework"`
	Projects           []string          `json:"projects"`
	Languages          []string          `json:"languages"`
	Links              map[string]string `json:"links"`
}

func newEnhancerPayload(form map[string]any) enhancerPayload {
	field := func(key string) string { return formString(form[key]) }
	return enhancerPayload{
		Identity: payloadIdentity{
			Name:        field("name"),
			TargetTitle: field("role"),
			JobLevel:    field("job_level"),
			JobLocation: field("location_target"),
		},
		SummaryInputs: payloadSummary{
			Industry:        field("job_type"),
			YearsExperience: field("years_experience"),
			CareerObjective: field("career_objective"),
			Abilities:       field("abilities"),
		},
		Experience: []payloadRole{{
			Role:          field("role"),
			BulletIntents: resume.SplitList(field("experience"), "\n"),
			Seniority:     field("job_level"),
		}},
		Skills: payloadSkills{
			TechnicalOrProfessional: resume.SplitList(field("skills"), ","),
			Soft:                    []string{},
		},
		OptionalSections: payloadOptionals{
			Certifications:     resume.SplitList(field("certifications"), "\n"),
			RelevantCoursework: resume.SplitList(field("relevant_coursework"), ","),
			Projects:           []string{},
			Languages:          []string{},
			Links:              map[string]string{},
		},
		JobType: field("job_type"),
	}
}

// formString 将表单中的任意 JSON 值转为文本，数组元素以换行连接。
func formString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := formString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
