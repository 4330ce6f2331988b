package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var ErrVectorIndexUnavailable = errors.New("vector index not configured")

// JobVectorIndex stores job embeddings for nearest-neighbour lookup. Points
// are keyed by job id, so re-indexing a job replaces its previous vector.
type JobVectorIndex interface {
	InitCollection(ctx context.Context) error
	UpsertJob(ctx context.Context, jobID uuid.UUID, title string, embedding *Embedding) error
	SearchJobs(ctx context.Context, query *Embedding, limit int) ([]VectorHit, error)
	DeleteJob(ctx context.Context, jobID uuid.UUID) error
}

type VectorHit struct {
	JobID          uuid.UUID
	Title          string
	EmbeddingModel string
	Score          float32
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *slog.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize int, log *slog.Logger) (JobVectorIndex, error) {
	if urlStr == "" {
		return noopVectorIndex{}, nil
	}

	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
		log:            log.With("component", "qdrant"),
	}, nil
}

// InitCollection implements JobVectorIndex.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("qdrant collection already exists", "collection", q.collectionName)
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("qdrant collection created", "collection", q.collectionName, "vector_size", q.vectorSize)
	return nil
}

// UpsertJob implements JobVectorIndex.
func (q *qdrantService) UpsertJob(ctx context.Context, jobID uuid.UUID, title string, embedding *Embedding) error {
	if embedding == nil {
		return q.DeleteJob(ctx, jobID)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(jobID.String()),
		Vectors: qdrant.NewVectors(embedding.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"job_id":          jobID.String(),
			"title":           title,
			"embedding_model": embedding.Model,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchJobs implements JobVectorIndex. Only vectors from the same model
// as query are considered.
func (q *qdrantService) SearchJobs(ctx context.Context, query *Embedding, limit int) ([]VectorHit, error) {
	if query == nil {
		return nil, nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("embedding_model", query.Model),
		},
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(query.Vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]VectorHit, 0, len(points))
	for _, point := range points {
		payload := point.Payload

		hit := VectorHit{Score: point.Score}

		if v, ok := payload["job_id"]; ok {
			if id, err := uuid.Parse(v.GetStringValue()); err == nil {
				hit.JobID = id
			}
		}
		if v, ok := payload["title"]; ok {
			hit.Title = v.GetStringValue()
		}
		if v, ok := payload["embedding_model"]; ok {
			hit.EmbeddingModel = v.GetStringValue()
		}

		if hit.JobID == uuid.Nil {
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DeleteJob implements JobVectorIndex.
func (q *qdrantService) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewID(jobID.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}

	return nil
}

type noopVectorIndex struct{}

// NewNoopVectorIndex returns an index that stores nothing and refuses
// searches with ErrVectorIndexUnavailable.
func NewNoopVectorIndex() JobVectorIndex {
	return noopVectorIndex{}
}

func (noopVectorIndex) InitCollection(context.Context) error { return nil }

func (noopVectorIndex) UpsertJob(context.Context, uuid.UUID, string, *Embedding) error { return nil }

func (noopVectorIndex) SearchJobs(context.Context, *Embedding, int) ([]VectorHit, error) {
	return nil, ErrVectorIndexUnavailable
}

func (noopVectorIndex) DeleteJob(context.Context, uuid.UUID) error { return nil }
