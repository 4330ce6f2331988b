package services

import (
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

func init() {
	retryBackoff = time.Millisecond
}

type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ float32) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)

	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	if len(g.responses) > 0 {
		return g.responses[len(g.responses)-1], nil
	}
	return "", errors.New("no response configured")
}

type fakeEmbedder struct {
	model     string
	dimension int
	vector    []float32
	err       error
	lastText  string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.lastText = text
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *fakeEmbedder) Model() string  { return e.model }
func (e *fakeEmbedder) Dimension() int { return e.dimension }

type fakeResumeRepo struct {
	mu            sync.Mutex
	resumes       map[uuid.UUID]*models.Resume
	pending       []models.Resume
	requeueCutoff time.Time
}

func newFakeResumeRepo(resumes ...*models.Resume) *fakeResumeRepo {
	r := &fakeResumeRepo{resumes: make(map[uuid.UUID]*models.Resume)}
	for _, res := range resumes {
		r.resumes[res.ID] = res
	}
	return r
}

func (r *fakeResumeRepo) Create(resume *models.Resume) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumes[resume.ID] = resume
	return nil
}

func (r *fakeResumeRepo) FindByID(id uuid.UUID) (*models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeResumeRepo) List(limit, offset int) ([]models.Resume, error) {
	return nil, nil
}

func (r *fakeResumeRepo) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	res.Status = status
	return nil
}

func (r *fakeResumeRepo) UpdateAnalysis(id uuid.UUID, expectedVersion int, a *models.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if res.AnalysisVersion != expectedVersion {
		return repositories.ErrStaleAnalysis
	}
	res.Analysis = *a
	res.AnalysisVersion = expectedVersion + 1
	return nil
}

func (r *fakeResumeRepo) MarkFailed(id uuid.UUID, expectedVersion int, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if res.AnalysisVersion != expectedVersion {
		return repositories.ErrStaleAnalysis
	}
	res.Status = models.StatusFailed
	res.ErrorMessage = &errorMsg
	res.AnalysisVersion = expectedVersion + 1
	return nil
}

func (r *fakeResumeRepo) FindPending(limit int) ([]models.Resume, error) {
	return r.pending, nil
}

func (r *fakeResumeRepo) FindForReprocessing(string, int) ([]models.Resume, error) {
	return nil, nil
}

// RequeueStale treats every processing row as stale.
func (r *fakeResumeRepo) RequeueStale(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requeueCutoff = cutoff
	var n int64
	for _, res := range r.resumes {
		if res.Status == models.StatusProcessing {
			res.Status = models.StatusQueued
			n++
		}
	}
	return n, nil
}

type fakeJobRepo struct {
	mu            sync.Mutex
	jobs          map[uuid.UUID]*models.Job
	latest        *models.Job
	pending       []models.Job
	requeueCutoff time.Time
}

func newFakeJobRepo(jobs ...*models.Job) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[uuid.UUID]*models.Job)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
		r.latest = j
	}
	return r
}

func (r *fakeJobRepo) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.latest = job
	return nil
}

func (r *fakeJobRepo) FindByID(id uuid.UUID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJobRepo) FindByIDs(ids []uuid.UUID) ([]models.Job, error) {
	var out []models.Job
	for _, id := range ids {
		if j, err := r.FindByID(id); err == nil {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) FindLatest() (*models.Job, error) {
	if r.latest == nil {
		return nil, repositories.ErrNotFound
	}
	return r.FindByID(r.latest.ID)
}

func (r *fakeJobRepo) List(limit, offset int) ([]models.Job, error) {
	return nil, nil
}

func (r *fakeJobRepo) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	j.Status = status
	return nil
}

func (r *fakeJobRepo) UpdateAnalysis(id uuid.UUID, expectedVersion int, a *models.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if j.AnalysisVersion != expectedVersion {
		return repositories.ErrStaleAnalysis
	}
	j.Analysis = *a
	j.AnalysisVersion = expectedVersion + 1
	return nil
}

func (r *fakeJobRepo) MarkFailed(id uuid.UUID, expectedVersion int, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	j.Status = models.StatusFailed
	j.ErrorMessage = &errorMsg
	j.AnalysisVersion = expectedVersion + 1
	return nil
}

func (r *fakeJobRepo) FindPending(limit int) ([]models.Job, error) {
	return r.pending, nil
}

func (r *fakeJobRepo) FindForReprocessing(string, int) ([]models.Job, error) {
	return nil, nil
}

func (r *fakeJobRepo) RequeueStale(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requeueCutoff = cutoff
	var n int64
	for _, j := range r.jobs {
		if j.Status == models.StatusProcessing {
			j.Status = models.StatusQueued
			n++
		}
	}
	return n, nil
}

type fakeStorage struct {
	files map[string][]byte
}

func (s *fakeStorage) SaveFile(context.Context, *multipart.FileHeader, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *fakeStorage) ReadFile(_ context.Context, key string) ([]byte, error) {
	data, ok := s.files[key]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, key string) error {
	delete(s.files, key)
	return nil
}

type fakeVectorIndex struct {
	mu       sync.Mutex
	upserted map[uuid.UUID]*Embedding
	hits     []VectorHit
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{upserted: make(map[uuid.UUID]*Embedding)}
}

func (v *fakeVectorIndex) InitCollection(context.Context) error { return nil }

func (v *fakeVectorIndex) UpsertJob(_ context.Context, jobID uuid.UUID, _ string, e *Embedding) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.upserted[jobID] = e
	return nil
}

func (v *fakeVectorIndex) SearchJobs(context.Context, *Embedding, int) ([]VectorHit, error) {
	return v.hits, nil
}

func (v *fakeVectorIndex) DeleteJob(_ context.Context, jobID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.upserted, jobID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DocumentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.DocumentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []models.DocumentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.DocumentEvent(nil), p.events...)
}
