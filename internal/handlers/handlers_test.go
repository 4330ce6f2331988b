package handlers

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
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type memResumeRepo struct {
	mu      sync.Mutex
	resumes map[uuid.UUID]*models.Resume
	failOn  error
}

func (r *memResumeRepo) Create(resume *models.Resume) error {
	if r.failOn != nil {
		return r.failOn
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumes[resume.ID] = resume
	return nil
}

func (r *memResumeRepo) FindByID(id uuid.UUID) (*models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.resumes[id]; ok {
		return res, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *memResumeRepo) List(limit, offset int) ([]models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Resume{}
	for _, res := range r.resumes {
		out = append(out, *res)
	}
	return out, nil
}

func (r *memResumeRepo) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	res.Status = status
	return nil
}

func (r *memResumeRepo) UpdateAnalysis(uuid.UUID, int, *models.Analysis) error { return nil }
func (r *memResumeRepo) MarkFailed(uuid.UUID, int, string) error              { return nil }
func (r *memResumeRepo) FindPending(int) ([]models.Resume, error)             { return nil, nil }
func (r *memResumeRepo) RequeueStale(time.Time) (int64, error)                { return 0, nil }
func (r *memResumeRepo) FindForReprocessing(string, int) ([]models.Resume, error) {
	return nil, nil
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func (r *memJobRepo) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *memJobRepo) FindByID(id uuid.UUID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		return j, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *memJobRepo) FindByIDs([]uuid.UUID) ([]models.Job, error) { return nil, nil }
func (r *memJobRepo) FindLatest() (*models.Job, error)            { return nil, repositories.ErrNotFound }

func (r *memJobRepo) List(limit, offset int) ([]models.Job, error) {
	return []models.Job{}, nil
}

func (r *memJobRepo) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	j.Status = status
	return nil
}

func (r *memJobRepo) UpdateAnalysis(uuid.UUID, int, *models.Analysis) error { return nil }
func (r *memJobRepo) MarkFailed(uuid.UUID, int, string) error              { return nil }
func (r *memJobRepo) FindPending(int) ([]models.Job, error)                { return nil, nil }
func (r *memJobRepo) RequeueStale(time.Time) (int64, error)                { return 0, nil }
func (r *memJobRepo) FindForReprocessing(string, int) ([]models.Job, error) {
	return nil, nil
}

type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func (s *memStorage) SaveFile(_ context.Context, file *multipart.FileHeader, prefix string) (string, error) {
	ext, err := services.ValidateUploadExtension(file.Filename)
	if err != nil {
		return "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}

	key := prefix + "_" + uuid.NewString() + ext
	s.mu.Lock()
	s.files[key] = data
	s.mu.Unlock()
	return key, nil
}

func (s *memStorage) ReadFile(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[key], nil
}

func (s *memStorage) DeleteFile(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type memQueue struct {
	mu    sync.Mutex
	tasks []services.Task
}

func (q *memQueue) Enqueue(task services.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

func (q *memQueue) Tasks() []services.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]services.Task(nil), q.tasks...)
}

type stubMatchService struct {
	report     *models.MatchReport
	similar    []models.SimilarJob
	err        error
	similarErr error
}

func (s *stubMatchService) Match(_ context.Context, resumeID, jobID uuid.UUID) (*models.MatchReport, error) {
	return s.report, s.err
}

func (s *stubMatchService) MatchLatest(_ context.Context, resumeID uuid.UUID) (*models.MatchReport, error) {
	return s.report, s.err
}

func (s *stubMatchService) SimilarJobs(context.Context, uuid.UUID, int) ([]models.SimilarJob, error) {
	return s.similar, s.similarErr
}

type recordingAdvisor struct {
	title, description string
	skills, jobSkills  []string
	count              int
}

func (a *recordingAdvisor) GenerateInterviewQuestions(_ context.Context, jobTitle, jobDescription string, skills []string, count int) models.InterviewQuestionsResponse {
	a.title, a.description, a.skills, a.count = jobTitle, jobDescription, skills, count
	return models.InterviewQuestionsResponse{
		Status:    models.AdvisorFallback,
		Questions: services.FallbackQuestions(services.NormalizeQuestionCount(count)),
	}
}

func (a *recordingAdvisor) CareerInsights(_ context.Context, skills []string, jobTitle, jobDescription string, jobSkills []string) models.CareerInsightsResponse {
	a.skills, a.title, a.description, a.jobSkills = skills, jobTitle, jobDescription, jobSkills
	return models.CareerInsightsResponse{
		Status:   models.AdvisorFallback,
		Insights: services.FallbackCareerInsights(),
	}
}

type testServer struct {
	app     *fiber.App
	resumes *memResumeRepo
	jobs    *memJobRepo
	storage *memStorage
	queue   *memQueue
	matcher *stubMatchService
	advisor *recordingAdvisor
	search  services.JobSearchIndex
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	search, err := services.NewJobSearchIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { search.Close() })

	ts := &testServer{
		resumes: &memResumeRepo{resumes: map[uuid.UUID]*models.Resume{}},
		jobs:    &memJobRepo{jobs: map[uuid.UUID]*models.Job{}},
		storage: &memStorage{files: map[string][]byte{}},
		queue:   &memQueue{},
		matcher: &stubMatchService{},
		advisor: &recordingAdvisor{},
		search:  search,
	}

	ts.app = fiber.New()
	ts.app.Use(requestid.New())
	ts.app.Use(CorrelationMiddleware)
	RegisterRoutes(ts.app.Group("/api/v1"), Handlers{
		Resume:  NewResumeHandler(ts.resumes, ts.storage, ts.queue, 1024, logger.Discard()),
		Job:     NewJobHandler(ts.jobs, search, ts.queue),
		Match:   NewMatchHandler(ts.matcher),
		Advisor: NewAdvisorHandler(ts.advisor, ts.resumes, ts.jobs),
	})

	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &decoded), string(body))
	}
	return resp, decoded
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestUploadResume(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, uploadRequest(t, "jane.txt", []byte("Go developer")))

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "jane.txt", body["original_name"])
	assert.Equal(t, "txt", body["file_type"])
	assert.Equal(t, string(models.StatusQueued), body["status"])

	id, err := uuid.Parse(body["id"].(string))
	require.NoError(t, err)
	stored, err := ts.resumes.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.FormatText, stored.Format)

	tasks := ts.queue.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, services.KindResume, tasks[0].Kind)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), tasks[0].CorrelationID)
	assert.NotEmpty(t, tasks[0].CorrelationID)
}

func TestUploadResume_Rejections(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, uploadRequest(t, "virus.exe", []byte("MZ")))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := ts.do(t, uploadRequest(t, "big.txt", bytes.Repeat([]byte("a"), 2048)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "file too large")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, body = ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "file is required", body["error"])

	assert.Empty(t, ts.queue.Tasks())
}

func TestUploadResume_DatabaseFailureCleansUp(t *testing.T) {
	ts := newTestServer(t)
	ts.resumes.failOn = errors.New("db down")

	resp, _ := ts.do(t, uploadRequest(t, "jane.txt", []byte("Go developer")))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Len(t, ts.storage.deleted, 1)
	assert.Empty(t, ts.storage.files)
	assert.Empty(t, ts.queue.Tasks())
}

func TestGetResume(t *testing.T) {
	ts := newTestServer(t)
	resume := &models.Resume{ID: uuid.New(), OriginalFileName: "cv.pdf", Analysis: models.Analysis{Status: models.StatusCompleted, Skills: []string{"go"}}}
	ts.resumes.resumes[resume.ID] = resume

	resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/"+resume.ID.String(), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cv.pdf", body["original_filename"])
	assert.NotContains(t, body, "embedding")

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReprocessResume(t *testing.T) {
	ts := newTestServer(t)
	resume := &models.Resume{ID: uuid.New(), Analysis: models.Analysis{Status: models.StatusFailed}}
	ts.resumes.resumes[resume.ID] = resume

	resp, body := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/"+resume.ID.String()+"/reprocess", nil))

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, string(models.StatusQueued), body["status"])
	assert.Equal(t, models.StatusQueued, resume.Status)
	require.Len(t, ts.queue.Tasks(), 1)

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/"+uuid.NewString()+"/reprocess", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateJob(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, jsonRequest(http.MethodPost, "/api/v1/jobs", map[string]string{
		"title":       "  Platform Engineer ",
		"description": "Run Kubernetes",
	}))

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Platform Engineer", body["title"])
	assert.Equal(t, string(models.StatusQueued), body["status"])

	tasks := ts.queue.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, services.KindJob, tasks[0].Kind)
}

func TestCreateJob_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, jsonRequest(http.MethodPost, "/api/v1/jobs", map[string]string{"description": "x"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "title is required", body["error"])

	resp, body = ts.do(t, jsonRequest(http.MethodPost, "/api/v1/jobs", map[string]string{"title": "x", "description": "  "}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "description is required", body["error"])

	assert.Empty(t, ts.queue.Tasks())
}

func TestSearchJobs(t *testing.T) {
	ts := newTestServer(t)
	job := &models.Job{ID: uuid.New(), Title: "Go Developer", Description: "Payments backend"}
	require.NoError(t, ts.search.IndexJob(job))

	resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/search?q=payments", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hits := body["hits"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, job.ID.String(), hits[0].(map[string]any)["job_id"])

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/search", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchEndpoints(t *testing.T) {
	ts := newTestServer(t)
	resumeID, jobID := uuid.New(), uuid.New()
	ts.matcher.report = &models.MatchReport{
		ResumeID:      resumeID.String(),
		JobID:         jobID.String(),
		MatchScore:    87.5,
		Status:        models.MatchSuccess,
		MissingSkills: []string{"kubernetes"},
	}

	resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/match/%s/%s", resumeID, jobID), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 87.5, body["match_score"])
	assert.Equal(t, "success", body["status"])

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/match/latest?resume_id="+resumeID.String(), nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/match/latest?resume_id=bad", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/match/%s/bad", resumeID), nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.matcher.err = fmt.Errorf("lookup: %w", repositories.ErrNotFound)
	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/match/%s/%s", resumeID, jobID), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSimilarJobs(t *testing.T) {
	ts := newTestServer(t)
	resumeID := uuid.New()
	ts.matcher.similar = []models.SimilarJob{{JobID: uuid.NewString(), Title: "SRE", MatchScore: 91}}

	resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/"+resumeID.String()+"/similar-jobs?limit=3", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["jobs"], 1)

	ts.matcher.similarErr = services.ErrVectorIndexUnavailable
	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/"+resumeID.String()+"/similar-jobs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInterviewQuestions(t *testing.T) {
	ts := newTestServer(t)
	job := &models.Job{
		ID:          uuid.New(),
		Title:       "Backend Engineer",
		Description: "Design APIs",
		Analysis:    models.Analysis{Skills: []string{"go", "sql"}},
	}
	ts.jobs.jobs[job.ID] = job

	resp, body := ts.do(t, jsonRequest(http.MethodPost, "/api/v1/interview-questions", map[string]any{
		"job_id": job.ID.String(),
		"count":  3,
	}))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fallback", body["status"])
	assert.Len(t, body["questions"], 3)
	assert.Equal(t, "Backend Engineer", ts.advisor.title)
	assert.Equal(t, "Design APIs", ts.advisor.description)
	assert.Equal(t, []string{"go", "sql"}, ts.advisor.skills)
	assert.Equal(t, 3, ts.advisor.count)
}

func TestInterviewQuestions_ResumeSkillsWinOverJobSkills(t *testing.T) {
	ts := newTestServer(t)
	job := &models.Job{ID: uuid.New(), Title: "Platform Engineer", Analysis: models.Analysis{Skills: []string{"kubernetes"}}}
	resume := &models.Resume{ID: uuid.New(), Analysis: models.Analysis{Skills: []string{"python"}}}
	ts.jobs.jobs[job.ID] = job
	ts.resumes.resumes[resume.ID] = resume

	resp, _ := ts.do(t, jsonRequest(http.MethodPost, "/api/v1/interview-questions", map[string]any{
		"job_id":    job.ID.String(),
		"resume_id": resume.ID.String(),
	}))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Platform Engineer", ts.advisor.title)
	assert.Equal(t, []string{"python"}, ts.advisor.skills)
}

func TestInterviewQuestions_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, jsonRequest(http.MethodPost, "/api/v1/interview-questions", map[string]any{"count": 3}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, jsonRequest(http.MethodPost, "/api/v1/interview-questions", map[string]any{"job_id": "nope"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, jsonRequest(http.MethodPost, "/api/v1/interview-questions", map[string]any{"job_id": uuid.NewString()}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCareerInsights(t *testing.T) {
	ts := newTestServer(t)
	resume := &models.Resume{ID: uuid.New(), Analysis: models.Analysis{Skills: []string{"python", "docker"}}}
	ts.resumes.resumes[resume.ID] = resume

	resp, body := ts.do(t, jsonRequest(http.MethodPost, "/api/v1/career-insights", map[string]any{
		"resume_id": resume.ID.String(),
		"job_title": "ML Engineer",
	}))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fallback", body["status"])
	assert.Contains(t, body, "insights")
	assert.Equal(t, []string{"python", "docker"}, ts.advisor.skills)
	assert.Equal(t, "ML Engineer", ts.advisor.title)
}
