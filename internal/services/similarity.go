package services

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrIncompatibleEmbeddings = errors.New("embeddings come from different models")
	ErrDimensionMismatch      = errors.New("embeddings have different dimensions")
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero norm. The lengths must match.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}

// MatchScore maps the cosine similarity of two embeddings onto 0-100,
// rounded to two decimals. Missing or zero-norm embeddings score 0 without
// error.
func MatchScore(a, b *Embedding) (float64, error) {
	if a == nil || b == nil || len(a.Vector) == 0 || len(b.Vector) == 0 {
		return 0, nil
	}
	if a.Model != b.Model {
		return 0, ErrIncompatibleEmbeddings
	}
	if len(a.Vector) != len(b.Vector) {
		return 0, ErrDimensionMismatch
	}
	if isZeroVector(a.Vector) || isZeroVector(b.Vector) {
		return 0, nil
	}

	return similarityToScore(CosineSimilarity(a.Vector, b.Vector)), nil
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func similarityToScore(sim float64) float64 {
	score := (sim + 1) * 50
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}

// MissingSkills lists the job skills the resume lacks, in job order,
// lowercased and deduplicated. Either side empty yields an empty list.
func MissingSkills(resumeSkills, jobSkills []string) []string {
	missing := []string{}
	if len(resumeSkills) == 0 || len(jobSkills) == 0 {
		return missing
	}

	have := make(map[string]struct{}, len(resumeSkills))
	for _, s := range resumeSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	seen := make(map[string]struct{}, len(jobSkills))
	for _, s := range jobSkills {
		skill := strings.ToLower(strings.TrimSpace(s))
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		if _, ok := have[skill]; !ok {
			missing = append(missing, skill)
		}
	}

	return missing
}
