package generation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/providers/replicate"
)

var errStore = errors.New("store unavailable")

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memStore implements every repository the generation package uses and
// counts writes so tests can assert on side effects.
type memStore struct {
	mu sync.Mutex

	projects  map[string]*domain.Project
	schedules map[string]*domain.Schedule
	jobs      map[string]*domain.GenerationJob
	images    []domain.GeneratedImage
	contents  []domain.GeneratedContent
	touched   map[string]time.Time
	claimed   []domain.Project

	writes int

	failCreateJob     error
	failCompleteJob   error
	failTouch         error
	failCreateImage   error
	failCreateContent error
	failFailJob       error
}

func newMemStore() *memStore {
	return &memStore{
		projects:  map[string]*domain.Project{},
		schedules: map[string]*domain.Schedule{},
		jobs:      map[string]*domain.GenerationJob{},
		touched:   map[string]time.Time{},
	}
}

func (m *memStore) addProject(p domain.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = &p
}

func (m *memStore) addJob(j domain.GenerationJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = &j
}

func (m *memStore) job(id string) domain.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return *j
	}
	return domain.GenerationJob{}
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type projectRepo struct{ *memStore }

func (r projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r projectRepo) TouchLastGeneration(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTouch != nil {
		return r.failTouch
	}
	r.writes++
	r.touched[id] = at
	return nil
}

func (r projectRepo) ClaimDue(_ context.Context, limit int, now time.Time) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.claimed
	if len(out) > limit {
		out = out[:limit]
	}
	r.claimed = r.claimed[len(out):]
	return out, nil
}

type scheduleRepo struct{ *memStore }

func (r scheduleRepo) GetByID(_ context.Context, id string) (*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r scheduleRepo) ActiveForProject(_ context.Context, projectID string) (*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schedules {
		if s.ProjectID == projectID && s.Enabled {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type jobRepo struct{ *memStore }

func (r jobRepo) Create(_ context.Context, job *domain.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateJob != nil {
		return r.failCreateJob
	}
	r.writes++
	cp := *job
	cp.CreatedAt = fixedNow
	r.jobs[job.ID] = &cp
	return nil
}

func (r jobRepo) MarkRunning(_ context.Context, jobID string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != domain.JobStatusPending && j.Status != domain.JobStatusRunning {
		return domain.ErrNotFound
	}
	r.writes++
	j.Status = domain.JobStatusRunning
	j.StartedAt = startedAt
	return nil
}

func (r jobRepo) MarkProcessing(_ context.Context, jobID, externalJobID string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status.IsTerminal() {
		return domain.ErrAlreadyFinal
	}
	r.writes++
	j.Status = domain.JobStatusProcessing
	j.ExternalJobID = externalJobID
	j.StartedAt = startedAt
	return nil
}

func (r jobRepo) Complete(_ context.Context, c domain.JobCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCompleteJob != nil {
		return r.failCompleteJob
	}
	j, ok := r.jobs[c.JobID]
	if !ok || j.Status.IsTerminal() {
		return domain.ErrAlreadyFinal
	}
	r.writes++
	at := c.CompletedAt
	j.Status = domain.JobStatusCompleted
	j.CompletedAt = &at
	j.ImagesGenerated = c.ImagesGenerated
	if c.ExternalJobID != "" {
		j.ExternalJobID = c.ExternalJobID
	}
	return nil
}

func (r jobRepo) Fail(_ context.Context, jobID, message string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFailJob != nil {
		return r.failFailJob
	}
	j, ok := r.jobs[jobID]
	if !ok || j.Status.IsTerminal() {
		return domain.ErrAlreadyFinal
	}
	r.writes++
	j.Status = domain.JobStatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &at
	return nil
}

func (r jobRepo) GetByExternalID(_ context.Context, externalJobID string) (*domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ExternalJobID == externalJobID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r jobRepo) ListPending(_ context.Context, limit int) ([]domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GenerationJob
	for _, j := range r.jobs {
		if j.Status == domain.JobStatusProcessing && j.ExternalJobID != "" && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r jobRepo) FailStale(_ context.Context, cutoff time.Time, message string, at time.Time) ([]domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GenerationJob
	for _, j := range r.jobs {
		if j.Status == domain.JobStatusRunning && j.ExternalJobID == "" && j.StartedAt.Before(cutoff) {
			r.writes++
			done := at
			j.Status = domain.JobStatusFailed
			j.ErrorMessage = message
			j.CompletedAt = &done
			out = append(out, *j)
		}
	}
	return out, nil
}

type imageRepo struct{ *memStore }

func (r imageRepo) Create(_ context.Context, image *domain.GeneratedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateImage != nil {
		return r.failCreateImage
	}
	r.writes++
	image.CreatedAt = fixedNow
	r.images = append(r.images, *image)
	return nil
}

type contentRepo struct{ *memStore }

func (r contentRepo) Create(_ context.Context, content *domain.GeneratedContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateContent != nil {
		return r.failCreateContent
	}
	r.writes++
	content.CreatedAt = fixedNow
	r.contents = append(r.contents, *content)
	return nil
}

func (r contentRepo) CompleteByJob(_ context.Context, jobID, url string, seconds *float64, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contents {
		c := &r.contents[i]
		if c.JobID == jobID && c.Status == domain.ContentStatusProcessing {
			r.writes++
			c.Status = domain.ContentStatusCompleted
			c.URL = url
			c.GenerationTimeSeconds = seconds
			return nil
		}
	}
	return domain.ErrAlreadyFinal
}

func (r contentRepo) FailByJob(_ context.Context, jobID, message string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contents {
		c := &r.contents[i]
		if c.JobID == jobID && c.Status == domain.ContentStatusProcessing {
			r.writes++
			c.Status = domain.ContentStatusFailed
			if c.Metadata == nil {
				c.Metadata = map[string]any{}
			}
			c.Metadata["error"] = message
			return nil
		}
	}
	return domain.ErrAlreadyFinal
}

// fakeProvider serves every provider interface from canned predictions.
type fakeProvider struct {
	mu          sync.Mutex
	runResult   *replicate.Prediction
	runErr      error
	createErr   error
	predictions map[string]*replicate.Prediction
	requests    []replicate.CreateRequest
	gets        int
}

func (f *fakeProvider) Run(_ context.Context, req replicate.CreateRequest) (*replicate.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.runResult, f.runErr
}

func (f *fakeProvider) CreatePrediction(_ context.Context, req replicate.CreateRequest) (*replicate.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &replicate.Prediction{ID: "pred-video-1", Status: replicate.StatusStarting}, nil
}

func (f *fakeProvider) GetPrediction(_ context.Context, id string) (*replicate.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	p, ok := f.predictions[id]
	if !ok {
		return nil, &replicate.APIError{StatusCode: 404, Detail: "not found"}
	}
	return p, nil
}

func succeeded(id string, output any) *replicate.Prediction {
	raw, _ := json.Marshal(output)
	return &replicate.Prediction{ID: id, Status: replicate.StatusSucceeded, Output: raw}
}
