package render

import (
	"html"
	"html/template"
	"strings"

	"resumeghana/internal/resume"
)

const (
	noExperience = "<p>No experience listed.</p>"
	noSkills     = "<p>No skills listed.</p>"
	noEducation  = "<p>No education listed.</p>"
)

// FormatBullets 将 AI 返回的要点渲染为列表，去掉开头的项目符号。
func FormatBullets(bullets []string) template.HTML {
	var b strings.Builder
	for _, bullet := range bullets {
		cleaned := strings.TrimSpace(resume.StripBullet(bullet))
		if cleaned == "" {
			continue
		}
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(cleaned))
		b.WriteString("</li>")
	}
	if b.Len() == 0 {
		return noExperience
	}
	return template.HTML("<ul>" + b.String() + "</ul>")
}

// FormatExperience 机械地格式化原始经历文本：每个 "---" 分段（或无分隔时每行）一个列表项，
// 分段内多行以 <br> 连接。没有可用内容时原样放入段落。
func FormatExperience(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return noExperience
	}
	entries := resume.SplitEntries(text)
	if len(entries) == 0 {
		return paragraph(text)
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, lines := range entries {
		b.WriteString("<li>")
		b.WriteString(joinEscaped(lines, "<br>"))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return template.HTML(b.String())
}

// FormatSkills 将技能渲染为标签。
func FormatSkills(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return noSkills
	}
	skills := resume.SplitSkills(text)
	if len(skills) == 0 {
		return paragraph(text)
	}
	tags := make([]string, 0, len(skills))
	for _, s := range skills {
		tags = append(tags, `<span class="skill-tag">`+html.EscapeString(s)+`</span>`)
	}
	return template.HTML(`<div class="skills">` + strings.Join(tags, " ") + `</div>`)
}

// FormatEducation 仅做展示，按行以 <br> 连接，不生成列表。
func FormatEducation(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return noEducation
	}
	lines := resume.SplitLines(text)
	if len(lines) == 0 {
		return paragraph(text)
	}
	return template.HTML(joinEscaped(lines, "<br>"))
}

func paragraph(text string) template.HTML {
	return template.HTML("<p>" + html.EscapeString(text) + "</p>")
}

func joinEscaped(lines []string, sep string) string {
	escaped := make([]string, len(lines))
	for i, l := range lines {
		escaped[i] = html.EscapeString(l)
	}
	return strings.Join(escaped, sep)
}
