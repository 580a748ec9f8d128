// Package render turns a resolved resume context into final HTML.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
)

// DefaultTemplate 为未知模板名的回落目标。
const DefaultTemplate = "modern_minimal"

// PhotoPlaceholder 是模板中头像 src 的占位符，渲染后才替换为图片数据。
const PhotoPlaceholder = "PHOTO_PLACEHOLDER"

// PhotoSrcAttr 是模板输出中占位符所在的完整 src 属性。
const PhotoSrcAttr = `src="` + PhotoPlaceholder + `"`

//go:embed templates/*.html
var builtinTemplates embed.FS

// Template 描述模板选择页展示的一项。
type Template struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var catalog = []Template{
	{Name: "modern_minimal", Label: "Modern Minimal", Description: "Simple, elegant, and focused on readability. Best for tech and product roles."},
	{Name: "corporate_professional", Label: "Corporate Professional", Description: "Crisp formal layout for finance, operations, and leadership positions."},
	{Name: "creative_designer", Label: "Creative Designer", Description: "Expressive format with visual flair while staying ATS-safe."},
	{Name: "simple_ats", Label: "Simple ATS", Description: "Maximum compatibility with applicant tracking systems. Clean and direct."},
}

// Templates 返回模板目录的副本。
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// Resolve maps a requested name onto the catalog; unknown names become DefaultTemplate.
func Resolve(name string) string {
	for _, t := range catalog {
		if t.Name == name {
			return name
		}
	}
	return DefaultTemplate
}

// Context 是模板可用的全部占位符。Experience/Skills/Education 为预渲染片段。
type Context struct {
	FullName                string
	Summary                 string
	Experience              template.HTML
	Skills                  template.HTML
	Education               template.HTML
	CareerValue             string
	Email                   string
	Phone                   string
	Country                 string
	Links                   string
	Role                    string
	Certifications          string
	IncludePhotoPlaceholder bool
}

func (c Context) values() map[string]any {
	return map[string]any{
		"full_name":                 c.FullName,
		"summary":                   c.Summary,
		"experience":                c.Experience,
		"skills":                    c.Skills,
		"education":                 c.Education,
		"career_value":              c.CareerValue,
		"email":                     c.Email,
		"phone":                     c.Phone,
		"country":                   c.Country,
		"links":                     c.Links,
		"role":                      c.Role,
		"certifications":            c.Certifications,
		"include_photo_placeholder": c.IncludePhotoPlaceholder,
	}
}

// Catalog holds one parsed template per catalog entry. It is immutable after
// NewCatalog and safe for concurrent Render calls.
type Catalog struct {
	templates map[string]*template.Template
}

// NewCatalog parses "<name>.html" for every catalog entry from fsys, or from the
// embedded set when fsys is nil. Entries whose file is missing use the built-in fallback.
func NewCatalog(fsys fs.FS, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if fsys == nil {
		sub, err := fs.Sub(builtinTemplates, "templates")
		if err != nil {
			return nil, fmt.Errorf("open builtin templates: %w", err)
		}
		fsys = sub
	}

	fallback, err := parseFile(builtinTemplates, "templates/fallback.html", "fallback")
	if err != nil {
		return nil, err
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(catalog))}
	for _, entry := range catalog {
		tmpl, err := parseFile(fsys, entry.Name+".html", entry.Name)
		switch {
		case err == nil:
			c.templates[entry.Name] = tmpl
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("resume template missing, using fallback", slog.String("template", entry.Name))
			c.templates[entry.Name] = fallback
		default:
			return nil, err
		}
	}
	return c, nil
}

// Render executes the named template. Unknown names render DefaultTemplate.
func (c *Catalog) Render(name string, ctx Context) (string, error) {
	resolved := Resolve(name)
	tmpl := c.templates[resolved]

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.values()); err != nil {
		return "", fmt.Errorf("render template %q: %w", resolved, err)
	}
	return buf.String(), nil
}

func parseFile(fsys fs.FS, path, name string) (*template.Template, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", path, err)
	}
	return tmpl, nil
}
