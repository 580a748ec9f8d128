package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeghana/internal/completion"
	"resumeghana/internal/llmjson"
	"resumeghana/internal/resume"
)

type call struct {
	System      string
	User        string
	Temperature float64
}

type stubCompleter struct {
	mu     sync.Mutex
	reply  string
	tokens int
	err    error
	calls  []call
}

func (s *stubCompleter) Complete(_ context.Context, system, user string, temperature float64) (completion.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{System: system, User: user, Temperature: temperature})
	if s.err != nil {
		return completion.Result{}, s.err
	}
	return completion.Result{Text: s.reply, Tokens: s.tokens}, nil
}

type usageCall struct {
	UserID uint
	Tokens int
}

type stubUsage struct {
	calls []usageCall
	err   error
}

func (u *stubUsage) RecordUsage(_ context.Context, userID uint, tokens int) error {
	u.calls = append(u.calls, usageCall{userID, tokens})
	return u.err
}

func validInput() resume.Input {
	return resume.Input{
		Name:            "Ama Mensah",
		Role:            "Data Analyst",
		Skills:          "SQL, Python",
		Experience:      "Built dashboards\nCleaned data",
		Education:       "University of Ghana (2020)",
		YearsExperience: "4",
	}
}

func TestEnhanceSection(t *testing.T) {
	stub := &stubCompleter{reply: "• Led the migration", tokens: 42}
	usage := &stubUsage{}
	svc := New(stub, WithUsageRecorder(usage))

	got, err := svc.EnhanceSection(context.Background(), 7, "", "did migration")
	require.NoError(t, err)
	assert.Equal(t, "• Led the migration", got)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "Section: experience\n\nContent:\ndid migration", stub.calls[0].User)
	assert.Equal(t, 0.6, stub.calls[0].Temperature)
	assert.NotContains(t, stub.calls[0].System, jsonGuidance)
	assert.Equal(t, []usageCall{{7, 42}}, usage.calls)
}

func TestEnhanceSection_BlankContent(t *testing.T) {
	stub := &stubCompleter{reply: "x"}
	_, err := New(stub).EnhanceSection(context.Background(), 1, "summary", "   ")
	assert.ErrorIs(t, err, resume.ErrValidation)
	assert.Empty(t, stub.calls)
}

func TestReview(t *testing.T) {
	stub := &stubCompleter{reply: "Here you go:\n```json\n" + `{
		"score": 85,
		"summary": "Solid",
		"strengths": ["Clear"],
		"weaknesses": "Short",
		"rewritten_bullets": [{"original": "did x", "improved": "Delivered x"}]
	}` + "\n```"}
	svc := New(stub)

	got, err := svc.Review(context.Background(), 0, validInput())
	require.NoError(t, err)
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, "Solid", got.Summary)
	assert.Equal(t, []string{"Clear"}, got.Strengths)
	assert.Equal(t, []string{"Short"}, got.Weaknesses)
	assert.NotNil(t, got.MissingSkills)
	assert.Empty(t, got.MissingSkills)
	assert.Equal(t, []BulletRewrite{{Original: "did x", Improved: "Delivered x"}}, got.RewrittenBullets)

	require.Len(t, stub.calls, 1)
	c := stub.calls[0]
	assert.True(t, strings.HasSuffix(c.System, jsonGuidance))
	assert.Contains(t, c.User, "Name: Ama Mensah\nTarget Role: Data Analyst\nSkills: SQL, Python\n")
}

func TestReview_ScoreNotClamped(t *testing.T) {
	stub := &stubCompleter{reply: `{"score": 150}`}
	got, err := New(stub).Review(context.Background(), 0, validInput())
	require.NoError(t, err)
	assert.Equal(t, 150, got.Score)
}

func TestReview_ValidationBeforeCall(t *testing.T) {
	stub := &stubCompleter{reply: `{}`}
	in := validInput()
	in.Skills = ""

	_, err := New(stub).Review(context.Background(), 0, in)
	var verr *resume.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"skills"}, verr.Fields)
	assert.Empty(t, stub.calls)
}

func TestReview_MalformedIsMeteredAndReturned(t *testing.T) {
	stub := &stubCompleter{reply: "I cannot help with that.", tokens: 9}
	usage := &stubUsage{}

	_, err := New(stub, WithUsageRecorder(usage)).Review(context.Background(), 3, validInput())
	assert.ErrorIs(t, err, llmjson.ErrMalformedResponse)
	assert.Equal(t, []usageCall{{3, 9}}, usage.calls)
}

func TestCompletionErrorsPropagate(t *testing.T) {
	stub := &stubCompleter{err: &completion.APIError{Kind: completion.KindRateLimit, Status: 429, Message: "slow down"}}
	usage := &stubUsage{}

	_, err := New(stub, WithUsageRecorder(usage)).Enrich(context.Background(), 3, validInput())
	assert.ErrorIs(t, err, completion.ErrRateLimit)
	assert.Empty(t, usage.calls)
}

func TestMeteringFailureDoesNotFailCall(t *testing.T) {
	stub := &stubCompleter{reply: "ok", tokens: 5}
	usage := &stubUsage{err: errors.New("db down")}

	got, err := New(stub, WithUsageRecorder(usage)).EnhanceSection(context.Background(), 2, "skills", "go")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Len(t, usage.calls, 1)
}

func TestAnonymousCallsAreNotMetered(t *testing.T) {
	stub := &stubCompleter{reply: "ok", tokens: 5}
	usage := &stubUsage{}

	_, err := New(stub, WithUsageRecorder(usage)).EnhanceSection(context.Background(), 0, "skills", "go")
	require.NoError(t, err)
	assert.Empty(t, usage.calls)
}

func TestEnrich(t *testing.T) {
	stub := &stubCompleter{reply: `{"professional_summary": " Analyst with four years. ", "experience_bullets": ["Built dashboards", ""], "career_value": "Grow BI"}`}

	got, err := New(stub).Enrich(context.Background(), 0, validInput())
	require.NoError(t, err)
	assert.Equal(t, "Analyst with four years.", got.ProfessionalSummary)
	assert.Equal(t, []string{"Built dashboards"}, got.ExperienceBullets)
	assert.Equal(t, "Grow BI", got.CareerValue)

	require.Len(t, stub.calls, 1)
	user := stub.calls[0].User
	assert.Contains(t, user, "Target Role: Data Analyst\n")
	assert.Contains(t, user, "Career Level: mid\n")
	assert.Contains(t, user, "Raw Experience:\nBuilt dashboards\nCleaned data")
	assert.Equal(t, 0.5, stub.calls[0].Temperature)
}

func TestEnrich_DefaultsRoleAndObjective(t *testing.T) {
	in := validInput()
	in.Role = ""
	in.Abilities = "Fast learner"
	user := enrichmentRequest(in)
	assert.Contains(t, user, "Target Role: Professional\n")
	assert.Contains(t, user, "Career Objective: Fast learner\n")
}

func TestClassifyStep(t *testing.T) {
	cases := map[int]StepKind{
		1: StepWizard, 3: StepWizard,
		2: StepEnhancer, 4: StepEnhancer, 0: StepEnhancer, 9: StepEnhancer, -1: StepEnhancer,
	}
	for step, want := range cases {
		assert.Equal(t, want, ClassifyStep(step), "step %d", step)
	}
}

func TestSuggest_Wizard(t *testing.T) {
	stub := &stubCompleter{reply: `{"review": "Looks fine", "suggestions": ["Add phone"], "keywords": []}`}

	got, err := New(stub).Suggest(context.Background(), 0, 1, map[string]any{"name": "Ama"})
	require.NoError(t, err)
	assert.Equal(t, StepWizard, got.Kind)
	require.NotNil(t, got.Wizard)
	assert.Nil(t, got.Enhancer)
	assert.Equal(t, "Looks fine", got.Wizard.Review)
	assert.Equal(t, []string{"Add phone"}, got.Wizard.Suggestions)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, `Current Step: 1`+"\n"+`User Data: {"name":"Ama"}`, stub.calls[0].User)
	assert.True(t, strings.HasPrefix(stub.calls[0].System, wizardPrompt))
	assert.Equal(t, 0.7, stub.calls[0].Temperature)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"review":"Looks fine","suggestions":["Add phone"],"keywords":[],"refined_content":""}`, string(data))
}

func TestSuggest_NilFormIsEmptyObject(t *testing.T) {
	stub := &stubCompleter{reply: `{}`}
	_, err := New(stub).Suggest(context.Background(), 0, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "Current Step: 3\nUser Data: {}", stub.calls[0].User)
}

func TestSuggest_Enhancer(t *testing.T) {
	stub := &stubCompleter{reply: `{
		"experience": [{"role": "Analyst", "enhanced_bullets": ["Built 12 dashboards"], "suggested_keywords": ["Power BI"]}],
		"skills": {"suggested_additional": ["Tableau"]},
		"summary": {"suggested_abilities": ["Attention to detail"], "suggested_objective": "Drive insight"},
		"optional_sections": {"suggested_links": ["GitHub Profile"]}
	}`}
	form := map[string]any{
		"name":                "Ama",
		"role":                "Analyst",
		"job_type":            "Finance",
		"job_level":           "mid",
		"location_target":     "Accra",
		"experience":          "Built dashboards\n\n Cleaned data ",
		"skills":              "SQL, ,Python",
		"certifications":      "",
		"relevant_coursework": "Stats,ML",
		"years_experience":    4.0,
	}

	got, err := New(stub).Suggest(context.Background(), 0, 2, form)
	require.NoError(t, err)
	assert.Equal(t, StepEnhancer, got.Kind)
	require.NotNil(t, got.Enhancer)
	assert.Nil(t, got.Wizard)
	assert.Equal(t, []ExperienceSuggestion{{Role: "Analyst", EnhancedBullets: []string{"Built 12 dashboards"}, SuggestedKeywords: []string{"Power BI"}}}, got.Enhancer.Experience)
	assert.Equal(t, []string{"Tableau"}, got.Enhancer.Skills.SuggestedAdditional)
	assert.Equal(t, "Drive insight", got.Enhancer.Summary.SuggestedObjective)
	assert.Equal(t, []string{"GitHub Profile"}, got.Enhancer.OptionalSections.SuggestedLinks)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(stub.calls[0].User), &payload))
	assert.Equal(t, map[string]any{"name": "Ama", "target_title": "Analyst", "job_level": "mid", "job_location": "Accra"}, payload["identity"])
	assert.Equal(t, "Finance", payload["job_type"])
	assert.Equal(t, "4", payload["summary_inputs"].(map[string]any)["years_experience"])

	roles := payload["experience"].([]any)
	require.Len(t, roles, 1)
	assert.Equal(t, []any{"Built dashboards", "Cleaned data"}, roles[0].(map[string]any)["bullet_intents"])

	skills := payload["skills"].(map[string]any)
	assert.Equal(t, []any{"SQL", "Python"}, skills["technical_or_professional"])
	assert.Equal(t, []any{}, skills["soft"])

	optional := payload["optional_sections"].(map[string]any)
	assert.Equal(t, []any{}, optional["certifications"])
	assert.Equal(t, []any{"Stats", "ML"}, optional["relevant_coursework"])
	assert.Equal(t, map[string]any{}, optional["links"])
}

func TestSuggest_EnhancerMissingKeysAreEmpty(t *testing.T) {
	stub := &stubCompleter{reply: `{}`}
	got, err := New(stub).Suggest(context.Background(), 0, 4, map[string]any{})
	require.NoError(t, err)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"experience": [],
		"skills": {"suggested_additional": []},
		"summary": {"suggested_abilities": [], "suggested_objective": ""},
		"optional_sections": {"suggested_links": []}
	}`, string(data))
}
