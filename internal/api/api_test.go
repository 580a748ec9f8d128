package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeghana/internal/ai"
	"resumeghana/internal/builder"
	"resumeghana/internal/completion"
	"resumeghana/internal/database"
	"resumeghana/internal/llmjson"
	"resumeghana/internal/render"
	"resumeghana/internal/resume"
	"resumeghana/internal/storage"
	"resumeghana/internal/tasks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---- fakes ----

type fakeAI struct {
	err        error
	step       int
	form       map[string]any
	section    string
	suggestion ai.Suggestion
}

func (f *fakeAI) EnhanceSection(_ context.Context, _ uint, sectionType, content string) (string, error) {
	f.section = sectionType
	if f.err != nil {
		return "", f.err
	}
	return "Enhanced: " + content, nil
}

func (f *fakeAI) Review(_ context.Context, _ uint, in resume.Input) (ai.ReviewResult, error) {
	if f.err != nil {
		return ai.ReviewResult{}, f.err
	}
	if err := in.Validate(); err != nil {
		return ai.ReviewResult{}, err
	}
	return ai.ReviewResult{Score: 150, Strengths: []string{}, Weaknesses: []string{}, MissingSkills: []string{}, RewrittenBullets: []ai.BulletRewrite{}}, nil
}

func (f *fakeAI) Suggest(_ context.Context, _ uint, step int, form map[string]any) (ai.Suggestion, error) {
	f.step = step
	f.form = form
	if f.err != nil {
		return ai.Suggestion{}, f.err
	}
	return f.suggestion, nil
}

type fakeCounter struct {
	counts    map[string]int64
	ttls      map[string]time.Duration
	err       error
	expireErr error
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.expireErr != nil {
		cmd.SetErr(f.expireErr)
		return cmd
	}
	if f.ttls == nil {
		f.ttls = map[string]time.Duration{}
	}
	f.ttls[key] = ttl
	cmd.SetVal(true)
	return cmd
}

// TTL 与 Redis 一致：键存在但没有过期时间时返回 -1。
func (f *fakeCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second)
	if ttl, ok := f.ttls[key]; ok {
		cmd.SetVal(ttl)
	} else {
		cmd.SetVal(-1)
	}
	return cmd
}

type fakeQueue struct {
	tasks []*asynq.Task
}

func (f *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(f.tasks))}, nil
}

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
	photos   map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}, photos: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName}, nil
}

func (s *fakeStorage) ListObjects(_ context.Context, prefix string, _ int) ([]storage.ObjectMeta, error) {
	var out []storage.ObjectMeta
	for k := range s.uploaded {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectMeta{Key: k, Size: int64(len(s.uploaded[k]))})
		}
	}
	return out, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration, filename string) (string, error) {
	return "https://example.invalid/" + objectKey + "?name=" + filename, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *fakeStorage) ReadPhoto(_ context.Context, key string) ([]byte, string, error) {
	data, ok := s.photos[key]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return data, "image/png", nil
}

type fakeScanner struct{ err error }

func (f fakeScanner) Scan(r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	return f.err
}

// ---- helpers ----

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ---- AI routes ----

func newAIEngine(svc AIService) *gin.Engine {
	r := gin.New()
	h := NewAIHandler(svc)
	g := r.Group("/v1/ai", asUser(1))
	g.POST("/suggest", h.Suggest)
	g.POST("/enhance", h.Enhance)
	g.POST("/review", h.Review)
	return r
}

func TestAIErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &resume.ValidationError{Fields: []string{"skills"}}, http.StatusBadRequest},
		{"config", &completion.ConfigError{Field: "HF_API_TOKEN"}, http.StatusServiceUnavailable},
		{"rate limit", &completion.APIError{Kind: completion.KindRateLimit, Status: 429}, http.StatusServiceUnavailable},
		{"auth", &completion.APIError{Kind: completion.KindAuth, Status: 401}, http.StatusBadGateway},
		{"transport", fmt.Errorf("call: %w", &completion.APIError{Kind: completion.KindTransport}), http.StatusBadGateway},
		{"malformed", &llmjson.MalformedResponseError{Err: errors.New("x")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, aiErrorStatus(tc.err))
		})
	}
}

func TestSuggestRoute(t *testing.T) {
	svc := &fakeAI{suggestion: ai.Suggestion{Kind: ai.StepWizard, Step: 3, Wizard: &ai.WizardSuggestion{Review: "ok", Suggestions: []string{}, Keywords: []string{}}}}
	r := newAIEngine(svc)

	w := doJSON(t, r, http.MethodPost, "/v1/ai/suggest", map[string]any{"step": 3, "formData": map[string]any{"name": "Ama"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, svc.step)
	assert.Equal(t, map[string]any{"name": "Ama"}, svc.form)
	assert.Equal(t, "ok", decode(t, w)["review"])

	w = doJSON(t, r, http.MethodPost, "/v1/ai/suggest", map[string]any{"name": "Kojo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.step)
	assert.Equal(t, "Kojo", svc.form["name"])

	w = doJSON(t, r, http.MethodPost, "/v1/ai/suggest", map[string]any{"step": "two"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnhanceRoute(t *testing.T) {
	svc := &fakeAI{}
	r := newAIEngine(svc)

	w := doJSON(t, r, http.MethodPost, "/v1/ai/enhance", map[string]any{"section_type": "summary", "content": "did things"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Enhanced: did things", decode(t, w)["enhanced"])
	assert.Equal(t, "summary", svc.section)

	w = doJSON(t, r, http.MethodPost, "/v1/ai/enhance", map[string]any{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = &completion.ConfigError{Field: "HF_API_TOKEN"}
	w = doJSON(t, r, http.MethodPost, "/v1/ai/enhance", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode(t, w)["error"], "HF_API_TOKEN")
}

func TestReviewRoute(t *testing.T) {
	r := newAIEngine(&fakeAI{})

	w := doJSON(t, r, http.MethodPost, "/v1/ai/review", map[string]any{"skills": "Go", "experience": "Built APIs"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 150, decode(t, w)["score"])

	w = doJSON(t, r, http.MethodPost, "/v1/ai/review", map[string]any{"skills": "Go"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "experience")
}

func TestAIRateLimit(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	r := gin.New()
	r.POST("/x", asUser(5), aiRateLimitMiddleware(counter, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/x", nil).Code)
	}
	w := doJSON(t, r, http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.EqualValues(t, 3, counter.counts["ai_rate:5"])

	assert.Equal(t, time.Minute, counter.ttls["ai_rate:5"])

	counter.err = errors.New("redis down")
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/x", nil).Code)
}

func TestAIRateLimit_RepairsMissingTTL(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, expireErr: errors.New("expire failed")}
	r := gin.New()
	r.POST("/x", asUser(9), aiRateLimitMiddleware(counter, 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	// 首次 EXPIRE 失败时放行，键暂时没有 TTL。
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/x", nil).Code)
	_, hasTTL := counter.ttls["ai_rate:9"]
	assert.False(t, hasTTL)

	counter.expireErr = nil
	w := doJSON(t, r, http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, time.Minute, counter.ttls["ai_rate:9"], "rejection path should restore the window ttl")
}

// ---- resume routes ----

type resumeFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	queue  *fakeQueue
	store  *fakeStorage
	user   database.User
}

func newResumeFixture(t *testing.T, maxResumes int) *resumeFixture {
	t.Helper()
	db := newTestDB(t)
	user := database.User{Username: "u-" + strings.ReplaceAll(t.Name(), "/", "_")}
	require.NoError(t, db.Create(&user).Error)

	catalog, err := render.NewCatalog(nil, nil)
	require.NoError(t, err)
	b := builder.New(nil, catalog, nil)
	queue := &fakeQueue{}
	store := newFakeStorage()

	h := NewResumeHandler(db, b, store, queue, store, maxResumes)
	r := gin.New()
	g := r.Group("/v1/resume", asUser(user.ID))
	g.POST("/preview", h.PreviewResume)
	g.POST("", h.CreateResume)
	g.GET("", h.ListResumes)
	g.GET("/:id", h.GetResume)
	g.GET("/:id/download", h.DownloadResume)
	g.POST("/:id/export", h.ExportResume)
	g.GET("/:id/download-link", h.GetDownloadLink)
	g.PATCH("/:id/template", h.UpdateTemplate)
	g.DELETE("/:id", h.DeleteResume)

	return &resumeFixture{engine: r, db: db, queue: queue, store: store, user: user}
}

func sampleBody() map[string]any {
	return map[string]any{
		"name":             "Akosua Darko",
		"role":             "Pharmacist",
		"skills":           "Dispensing, Inventory",
		"career_objective": "Improve community health outcomes.",
		"experience_entries": []map[string]any{
			{"company": "Ernest Chemists", "years": "3 years", "description": "Dispensed medication"},
			{"company": "", "years": "", "description": ""},
			{"company": "Korle Bu", "years": "1 year", "description": "Intern"},
		},
		"template": "simple_ats",
	}
}

func TestPreviewResume(t *testing.T) {
	f := newResumeFixture(t, 0)

	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume/preview", sampleBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "simple_ats", out["template"])
	assert.Equal(t, true, out["degraded"])
	html := out["html"].(string)
	assert.Contains(t, html, "Akosua Darko")
	assert.Equal(t, 2, strings.Count(html, "<li>"))
	assert.Contains(t, html, "Improve community health outcomes.")

	var count int64
	require.NoError(t, f.db.Model(&database.Resume{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPreviewResume_Validation(t *testing.T) {
	f := newResumeFixture(t, 0)
	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume/preview", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "skills")
}

func TestCreateAndViewResume(t *testing.T) {
	f := newResumeFixture(t, 0)

	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "Resume - Pharmacist", created["title"])
	id := uint(created["id"].(float64))

	var sections int64
	require.NoError(t, f.db.Model(&database.ResumeSection{}).Where("resume_id = ?", id).Count(&sections).Error)
	assert.EqualValues(t, 6, sections)

	w = doJSON(t, f.engine, http.MethodGet, fmt.Sprintf("/v1/resume/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	detail := decode(t, w)
	assert.Equal(t, created["html"], detail["html"])
	input := detail["input"].(map[string]any)
	assert.Equal(t, "Ernest Chemists (3 years)\nDispensed medication\n\n---\n\nKorle Bu (1 year)\nIntern", input["experience"])

	w = doJSON(t, f.engine, http.MethodGet, "/v1/resume", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "simple_ats", items[0]["template"])
	assert.Equal(t, false, items[0]["has_pdf"])

	w = doJSON(t, f.engine, http.MethodGet, fmt.Sprintf("/v1/resume/%d/download", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf(`filename="resume-%d.html"`, id))
	assert.Contains(t, w.Body.String(), "Akosua Darko")
}

func TestCreateResume_Quota(t *testing.T) {
	f := newResumeFixture(t, 1)
	require.Equal(t, http.StatusCreated, doJSON(t, f.engine, http.MethodPost, "/v1/resume", sampleBody()).Code)
	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume", sampleBody())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateResume_ForeignPhotoKey(t *testing.T) {
	f := newResumeFixture(t, 0)
	body := sampleBody()
	body["photo_key"] = "photos/999/x.png"
	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetResume_InlinesPhoto(t *testing.T) {
	f := newResumeFixture(t, 0)
	key := fmt.Sprintf("photos/%d/me.png", f.user.ID)
	f.store.photos[key] = []byte("png")

	body := sampleBody()
	body["photo_key"] = key
	body["template"] = "corporate_professional"
	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["html"], "data:image/png;base64,cG5n")
}

func TestResumeNotFoundAndInvalidID(t *testing.T) {
	f := newResumeFixture(t, 0)
	assert.Equal(t, http.StatusNotFound, doJSON(t, f.engine, http.MethodGet, "/v1/resume/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, f.engine, http.MethodGet, "/v1/resume/abc", nil).Code)
}

func TestExportAndDownloadLink(t *testing.T) {
	f := newResumeFixture(t, 0)
	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(decode(t, w)["id"].(float64))

	w = doJSON(t, f.engine, http.MethodGet, fmt.Sprintf("/v1/resume/%d/download-link", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, f.engine, http.MethodPost, fmt.Sprintf("/v1/resume/%d/export", id), nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "task-1", decode(t, w)["task_id"])
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, tasks.TypeResumeExport, f.queue.tasks[0].Type())
	payload, err := tasks.ParseResumeExportPayload(f.queue.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, id, payload.ResumeID)

	var saved database.Resume
	require.NoError(t, f.db.First(&saved, id).Error)
	assert.Equal(t, database.StatusPending, saved.Status)

	require.NoError(t, f.db.Model(&saved).Update("pdf_key", "exports/1/a.pdf").Error)
	w = doJSON(t, f.engine, http.MethodGet, fmt.Sprintf("/v1/resume/%d/download-link", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprintf("https://example.invalid/exports/1/a.pdf?name=resume-%d.pdf", id), decode(t, w)["url"])
}

func TestUpdateTemplateAndDelete(t *testing.T) {
	f := newResumeFixture(t, 0)
	w := doJSON(t, f.engine, http.MethodPost, "/v1/resume", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(decode(t, w)["id"].(float64))

	w = doJSON(t, f.engine, http.MethodPatch, fmt.Sprintf("/v1/resume/%d/template", id), map[string]any{"template": "fancy_template_xyz"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, render.DefaultTemplate, decode(t, w)["template"])

	w = doJSON(t, f.engine, http.MethodDelete, fmt.Sprintf("/v1/resume/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var sections int64
	require.NoError(t, f.db.Model(&database.ResumeSection{}).Where("resume_id = ?", id).Count(&sections).Error)
	assert.Zero(t, sections)
	assert.Equal(t, http.StatusNotFound, doJSON(t, f.engine, http.MethodGet, fmt.Sprintf("/v1/resume/%d", id), nil).Code)
}

// ---- photos ----

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func uploadPhoto(t *testing.T, h *PhotoHandler, userID uint, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := newMultipartUpload(t, "me.png", content)
	req := httptest.NewRequest(http.MethodPost, "/v1/photos", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("userID", userID)
	h.UploadPhoto(c)
	return w
}

func TestUploadPhoto(t *testing.T) {
	store := newFakeStorage()
	h := NewPhotoHandler(store, fakeScanner{}, nil)

	w := uploadPhoto(t, h, 3, pngHeader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decode(t, w)["photo_key"].(string)
	assert.True(t, strings.HasPrefix(key, "photos/3/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, isValidPhotoKey(3, key))
	assert.Equal(t, pngHeader, store.uploaded[key])
}

func TestUploadPhoto_Rejections(t *testing.T) {
	store := newFakeStorage()

	w := uploadPhoto(t, NewPhotoHandler(store, nil, nil), 3, []byte("just some text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = uploadPhoto(t, NewPhotoHandler(store, fakeScanner{err: errMalwareDetected}, nil), 3, pngHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = uploadPhoto(t, NewPhotoHandler(store, fakeScanner{err: errors.New("clamd down")}, nil), 3, pngHeader)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	big := append(append([]byte{}, pngHeader...), make([]byte, maxPhotoBytes)...)
	w = uploadPhoto(t, NewPhotoHandler(store, nil, nil), 3, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Empty(t, store.uploaded)
}

func TestPhotoListAndDelete(t *testing.T) {
	store := newFakeStorage()
	store.uploaded["photos/4/a.png"] = []byte("a")
	store.uploaded["photos/5/b.png"] = []byte("b")
	h := NewPhotoHandler(store, nil, nil)

	r := gin.New()
	r.GET("/v1/photos", asUser(4), h.ListPhotos)
	r.DELETE("/v1/photos", asUser(4), h.DeletePhoto)

	w := doJSON(t, r, http.MethodGet, "/v1/photos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "photos/4/a.png", items[0].(map[string]any)["photo_key"])

	assert.Equal(t, http.StatusForbidden, doJSON(t, r, http.MethodDelete, "/v1/photos?key=photos/5/b.png", nil).Code)
	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, "/v1/photos?key=photos/4/a.png", nil).Code)
	assert.Equal(t, []string{"photos/4/a.png"}, store.deleted)
}

func TestIsValidPhotoKey(t *testing.T) {
	assert.True(t, isValidPhotoKey(1, "photos/1/abc.jpg"))
	assert.True(t, isValidPhotoKey(1, "photos/1/abc.JPEG"))
	assert.True(t, isValidPhotoKey(1, "photos/1/abc.webp"))
	assert.False(t, isValidPhotoKey(1, ""))
	assert.False(t, isValidPhotoKey(1, "photos/2/abc.png"))
	assert.False(t, isValidPhotoKey(1, "photos/1/../2/abc.png"))
	assert.False(t, isValidPhotoKey(1, "photos/1//abc.png"))
	assert.False(t, isValidPhotoKey(1, "photos/1/abc.gif"))
	assert.False(t, isValidPhotoKey(1, "photos/1/"+strings.Repeat("a", 200)+".png"))
}

// ---- templates & usage ----

func TestTemplateRoutes(t *testing.T) {
	catalog, err := render.NewCatalog(nil, nil)
	require.NoError(t, err)
	h := NewTemplateHandler(catalog)
	r := gin.New()
	r.GET("/v1/templates", h.ListTemplates)
	r.GET("/v1/templates/:name/preview", h.PreviewTemplate)

	w := doJSON(t, r, http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 4)
	first := items[0].(map[string]any)
	assert.Equal(t, "modern_minimal", first["name"])
	assert.Equal(t, true, first["default"])

	w = doJSON(t, r, http.MethodGet, "/v1/templates/creative_designer/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Abena Owusu")

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/v1/templates/nope/preview", nil).Code)
}

func TestUsageRoute(t *testing.T) {
	db := newTestDB(t)
	store := database.NewUsageStore(db)
	require.NoError(t, store.RecordUsage(context.Background(), 8, 40))
	require.NoError(t, store.RecordUsage(context.Background(), 8, 2))

	r := gin.New()
	r.GET("/v1/usage", asUser(8), NewUsageHandler(store).GetUsage)

	w := doJSON(t, r, http.MethodGet, "/v1/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 2, out["requests"])
	assert.EqualValues(t, 42, out["total_tokens"])
}

func TestUnauthenticated(t *testing.T) {
	r := gin.New()
	r.GET("/v1/usage", asUser(0), NewUsageHandler(nil).GetUsage)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodGet, "/v1/usage", nil).Code)
}
