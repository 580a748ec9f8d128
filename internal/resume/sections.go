package resume

import "strings"

// 持久化时使用的分节类型。
const (
	SectionPersonal   = "personal"
	SectionProfile    = "profile"
	SectionSummary    = "summary"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
)

// Section 是简历的一个命名分节，Content 保存原始文本。
type Section struct {
	Type    string
	Content map[string]string
}

// Sections 将输入拆成持久化分节。summary 保存 objective（为空时为 abilities）。
func Sections(in Input) []Section {
	return []Section{
		{Type: SectionPersonal, Content: map[string]string{
			"name":      in.Name,
			"email":     in.Email,
			"phone":     in.Phone,
			"country":   in.Country,
			"links":     in.Links,
			"role":      in.Role,
			"photo_key": in.PhotoKey,
		}},
		{Type: SectionProfile, Content: map[string]string{
			"job_type":            in.JobType,
			"job_level":           in.JobLevel,
			"years_experience":    in.YearsExperience,
			"location_target":     in.LocationTarget,
			"functional_focus":    in.FunctionalFocus,
			"abilities":           in.Abilities,
			"certifications":      in.Certifications,
			"relevant_coursework": in.RelevantCoursework,
		}},
		{Type: SectionSummary, Content: map[string]string{"raw": in.Objective()}},
		{Type: SectionExperience, Content: map[string]string{"raw": in.Experience}},
		{Type: SectionEducation, Content: map[string]string{"raw": in.Education}},
		{Type: SectionSkills, Content: map[string]string{"raw": in.Skills}},
	}
}

// FromSections 由分节重建输入。personal 中缺少姓名时使用 title。
// 文本分节读取 raw，兼容旧数据中的 text 键。
func FromSections(title string, sections []Section) Input {
	in := Input{Name: title}
	for _, s := range sections {
		c := s.Content
		switch s.Type {
		case SectionPersonal:
			if name := strings.TrimSpace(c["name"]); name != "" {
				in.Name = name
			}
			in.Role = c["role"]
			in.Email = c["email"]
			in.Phone = c["phone"]
			in.Country = c["country"]
			in.Links = c["links"]
			in.PhotoKey = c["photo_key"]
		case SectionProfile:
			in.JobType = c["job_type"]
			in.JobLevel = c["job_level"]
			in.YearsExperience = c["years_experience"]
			in.LocationTarget = c["location_target"]
			in.FunctionalFocus = c["functional_focus"]
			in.Abilities = c["abilities"]
			in.Certifications = c["certifications"]
			in.RelevantCoursework = c["relevant_coursework"]
		case SectionSummary:
			in.CareerObjective = rawText(c)
		case SectionExperience:
			in.Experience = rawText(c)
		case SectionEducation:
			in.Education = rawText(c)
		case SectionSkills:
			in.Skills = rawText(c)
		}
	}
	return in
}

func rawText(c map[string]string) string {
	if raw, ok := c["raw"]; ok {
		return raw
	}
	return c["text"]
}
