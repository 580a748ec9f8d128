package resume

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Input 是简历生成的原始输入，字段均为用户自由填写的文本。
// Skills 以逗号/分号/换行分隔；Experience 与 Education 可用 "---" 分隔多段经历。
type Input struct {
	Name               string `json:"name"`
	Role               string `json:"role"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Country            string `json:"country"`
	JobType            string `json:"job_type"`
	JobLevel           string `json:"job_level"`
	YearsExperience    string `json:"years_experience"`
	LocationTarget     string `json:"location_target"`
	FunctionalFocus    string `json:"functional_focus"`
	Skills             string `json:"skills"`
	Abilities          string `json:"abilities"`
	CareerObjective    string `json:"career_objective"`
	Experience         string `json:"experience"`
	Education          string `json:"education"`
	Certifications     string `json:"certifications"`
	RelevantCoursework string `json:"relevant_coursework"`
	Links              string `json:"links"`
	// PhotoKey 指向已上传的头像对象，仅在渲染时解析为图片数据。
	PhotoKey string `json:"photo_key,omitempty"`
}

// 职级取值。
const (
	LevelStudent = "student"
	LevelJunior  = "junior"
	LevelMid     = "mid"
	LevelSenior  = "senior"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("resume validation failed")

// ValidationError lists required fields that were left blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validate 要求 skills 与 experience 均非空，须在任何 AI 调用之前执行。
func (in Input) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Skills) == "" {
		missing = append(missing, "skills")
	}
	if strings.TrimSpace(in.Experience) == "" {
		missing = append(missing, "experience")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

var leadingYears = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

// Level returns JobLevel when set, otherwise infers it from YearsExperience:
// under 1 year student, under 3 junior, under 7 mid, else senior.
// An unreadable years value yields "".
func (in Input) Level() string {
	if level := strings.TrimSpace(in.JobLevel); level != "" {
		return level
	}
	m := leadingYears.FindStringSubmatch(in.YearsExperience)
	if m == nil {
		return ""
	}
	years, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return ""
	}
	switch {
	case years < 1:
		return LevelStudent
	case years < 3:
		return LevelJunior
	case years < 7:
		return LevelMid
	default:
		return LevelSenior
	}
}

// Objective 返回用户填写的职业目标，为空时回落到 abilities。
func (in Input) Objective() string {
	if objective := strings.TrimSpace(in.CareerObjective); objective != "" {
		return objective
	}
	return strings.TrimSpace(in.Abilities)
}

// Title 生成保存时使用的默认标题。
func (in Input) Title() string {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = "Untitled"
	}
	return "Resume - " + role
}
