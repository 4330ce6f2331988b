package services

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
)

// JobSearchIndex is a full-text index over job postings.
type JobSearchIndex interface {
	IndexJob(job *models.Job) error
	DeleteJob(id uuid.UUID) error
	Search(query string, limit int) ([]models.JobSearchHit, error)
	Close() error
}

type jobDocument struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

type bleveJobIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewJobSearchIndex opens or creates the index at path. An empty path gives
// an in-memory index.
func NewJobSearchIndex(path string) (JobSearchIndex, error) {
	var (
		index bleve.Index
		err   error
	)

	switch {
	case path == "":
		index, err = bleve.NewMemOnly(buildJobIndexMapping())
	case indexExists(path):
		index, err = bleve.Open(path)
	default:
		index, err = bleve.New(path, buildJobIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open job search index: %w", err)
	}

	return &bleveJobIndex{index: index}, nil
}

func indexExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func buildJobIndexMapping() mapping.IndexMapping {
	jobMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true

	skillField := bleve.NewTextFieldMapping()
	skillField.Analyzer = keyword.Name

	jobMapping.AddFieldMappingsAt("title", titleField)
	jobMapping.AddFieldMappingsAt("description", textField)
	jobMapping.AddFieldMappingsAt("skills", skillField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = jobMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// IndexJob implements JobSearchIndex.
func (b *bleveJobIndex) IndexJob(job *models.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc := jobDocument{
		Title:       job.Title,
		Description: job.Description,
		Skills:      job.Skills,
	}
	if err := b.index.Index(job.ID.String(), doc); err != nil {
		return fmt.Errorf("failed to index job %s: %w", job.ID, err)
	}
	return nil
}

// DeleteJob implements JobSearchIndex.
func (b *bleveJobIndex) DeleteJob(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Delete(id.String()); err != nil {
		return fmt.Errorf("failed to delete job %s from index: %w", id, err)
	}
	return nil
}

// Search implements JobSearchIndex. Title matches weigh more than
// description matches; an exact skill term also matches.
func (b *bleveJobIndex) Search(queryText string, limit int) ([]models.JobSearchHit, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return []models.JobSearchHit{}, nil
	}

	titleQuery := bleve.NewMatchQuery(queryText)
	titleQuery.SetField("title")
	titleQuery.SetBoost(2.0)

	descQuery := bleve.NewMatchQuery(queryText)
	descQuery.SetField("description")

	skillQuery := bleve.NewTermQuery(strings.ToLower(queryText))
	skillQuery.SetField("skills")

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(titleQuery, descQuery, skillQuery))
	req.Size = limit
	req.Fields = []string{"title"}

	b.mu.RLock()
	res, err := b.index.Search(req)
	b.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("job search failed: %w", err)
	}

	hits := make([]models.JobSearchHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		title, _ := hit.Fields["title"].(string)
		hits = append(hits, models.JobSearchHit{
			JobID: hit.ID,
			Title: title,
			Score: hit.Score,
		})
	}

	return hits, nil
}

// Close implements JobSearchIndex.
func (b *bleveJobIndex) Close() error {
	return b.index.Close()
}
