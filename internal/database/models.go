package database

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeghana/internal/resume"
)

// 简历导出状态。
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:64"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户保存的一份简历。内容按分节存储在 ResumeSection 中。
type Resume struct {
	gorm.Model
	Title        string          `gorm:"size:255"`
	TemplateName string          `gorm:"size:64"`
	UserID       uint            `gorm:"index"`
	User         User            `gorm:"constraint:OnDelete:CASCADE"`
	PhotoKey     string          `gorm:"size:512"`
	PdfKey       string          `gorm:"size:512"`
	Status       string          `gorm:"size:32"`
	Sections     []ResumeSection `gorm:"constraint:OnDelete:CASCADE"`
}

// ResumeSection 保存一个分节，Content 为字符串键值的 JSON。
type ResumeSection struct {
	gorm.Model
	ResumeID    uint           `gorm:"index"`
	SectionType string         `gorm:"size:32"`
	Content     datatypes.JSON `gorm:"type:jsonb"`
}

// AIUsage 记录一次 AI 调用消耗的 token。
type AIUsage struct {
	gorm.Model
	UserID     uint `gorm:"index"`
	TokensUsed int
}

// TableName 固定表名。
func (AIUsage) TableName() string { return "ai_usages" }

// SectionsFromInput 将输入转换为待插入的分节行。
func SectionsFromInput(in resume.Input) ([]ResumeSection, error) {
	sections := resume.Sections(in)
	rows := make([]ResumeSection, 0, len(sections))
	for _, s := range sections {
		content, err := json.Marshal(s.Content)
		if err != nil {
			return nil, fmt.Errorf("encode section %q: %w", s.Type, err)
		}
		rows = append(rows, ResumeSection{SectionType: s.Type, Content: datatypes.JSON(content)})
	}
	return rows, nil
}

// ToInput 由已加载的分节重建输入。需预先 Preload("Sections")。
func (r *Resume) ToInput() (resume.Input, error) {
	sections := make([]resume.Section, 0, len(r.Sections))
	for _, row := range r.Sections {
		content := map[string]string{}
		if len(row.Content) > 0 {
			if err := json.Unmarshal(row.Content, &content); err != nil {
				return resume.Input{}, fmt.Errorf("decode section %q of resume %d: %w", row.SectionType, r.ID, err)
			}
		}
		sections = append(sections, resume.Section{Type: row.SectionType, Content: content})
	}
	in := resume.FromSections(r.Title, sections)
	if in.PhotoKey == "" {
		in.PhotoKey = r.PhotoKey
	}
	return in, nil
}
