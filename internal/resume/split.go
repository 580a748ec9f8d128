package resume

import (
	"fmt"
	"regexp"
	"strings"
)

// EntryDivider separates per-employer or per-school blocks inside free text.
const EntryDivider = "---"

var (
	bulletGlyph    = regexp.MustCompile(`^[•\-–—]\s*`)
	skillDelimiter = regexp.MustCompile(`[,;\n]+`)
)

// StripBullet removes one leading bullet glyph and the whitespace after it.
func StripBullet(line string) string {
	return bulletGlyph.ReplaceAllString(strings.TrimSpace(line), "")
}

// SplitSkills splits on commas, semicolons and newlines, trimming and dropping empty pieces.
func SplitSkills(text string) []string {
	return compact(skillDelimiter.Split(text, -1))
}

// SplitList splits on sep, trimming and dropping empty pieces. The result is never nil.
func SplitList(text, sep string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return compact(strings.Split(text, sep))
}

// SplitLines 将 "---" 视作换行，返回全部非空行。
func SplitLines(text string) []string {
	return SplitList(strings.ReplaceAll(text, EntryDivider, "\n"), "\n")
}

// SplitEntries groups free text into entries. With "---" dividers each block is one
// entry holding its lines; without dividers every line is its own entry.
// Bullet glyphs are stripped and blank lines or entries dropped.
func SplitEntries(text string) [][]string {
	var blocks []string
	if strings.Contains(text, EntryDivider) {
		blocks = strings.Split(text, EntryDivider)
	} else {
		blocks = strings.Split(text, "\n")
	}

	entries := make([][]string, 0, len(blocks))
	for _, block := range blocks {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if cleaned := strings.TrimSpace(StripBullet(line)); cleaned != "" {
				lines = append(lines, cleaned)
			}
		}
		if len(lines) > 0 {
			entries = append(entries, lines)
		}
	}
	return entries
}

// Entry 是表单中重复出现的一组经历字段（公司/年限/描述 或 学校/时间/技能）。
type Entry struct {
	Heading string
	Period  string
	Detail  string
}

// FoldEntries 把多组表单经历折叠成以 "---" 分隔的文本，全空的组被跳过。
func FoldEntries(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		heading := strings.TrimSpace(e.Heading)
		period := strings.TrimSpace(e.Period)
		detail := strings.TrimSpace(e.Detail)
		if heading == "" && period == "" && detail == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)\n%s", heading, period, detail))
	}
	return strings.Join(parts, "\n\n"+EntryDivider+"\n\n")
}

func compact(pieces []string) []string {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
