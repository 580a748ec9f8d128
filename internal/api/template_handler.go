package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeghana/internal/render"
)

// TemplateRenderer 渲染指定模板。
type TemplateRenderer interface {
	Render(name string, ctx render.Context) (string, error)
}

// TemplateHandler 负责模板目录与示例预览。
type TemplateHandler struct {
	renderer TemplateRenderer
}

func NewTemplateHandler(renderer TemplateRenderer) *TemplateHandler {
	return &TemplateHandler{renderer: renderer}
}

type templateListItem struct {
	render.Template
	Default bool `json:"default"`
}

// ListTemplates GET /v1/templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	catalog := render.Templates()
	items := make([]templateListItem, 0, len(catalog))
	for _, t := range catalog {
		items = append(items, templateListItem{Template: t, Default: t.Name == render.DefaultTemplate})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// PreviewTemplate GET /v1/templates/:name/preview
// 使用示例数据渲染模板，不调用 AI。
func (h *TemplateHandler) PreviewTemplate(c *gin.Context) {
	name := c.Param("name")
	if render.Resolve(name) != name {
		NotFound(c, "template not found")
		return
	}

	out, err := h.renderer.Render(name, sampleContext())
	if err != nil {
		loggerFrom(c).Error("render template preview failed", "template", name, "error", err)
		Internal(c, "failed to render template")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

func sampleContext() render.Context {
	return render.Context{
		FullName:    "Abena Owusu",
		Role:        "Operations Manager",
		Email:       "abena.owusu@example.com",
		Phone:       "+233 20 000 0000",
		Country:     "Ghana",
		Summary:     "Operations manager with eight years of experience running logistics teams across West Africa.",
		Experience:  render.FormatBullets([]string{"Led a team of 25 across three depots", "Reduced delivery delays by 30%"}),
		Skills:      render.FormatSkills("Logistics, Team leadership, Excel, Vendor management"),
		Education:   render.FormatEducation("University of Ghana, BSc Administration (2015)"),
		CareerValue: "Brings disciplined process improvement to growing distribution networks.",
	}
}
