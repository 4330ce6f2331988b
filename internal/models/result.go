package models

const InformationNotAvailable = "Information not available"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	Status       string `json:"status"`
}

type CreateJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type QueuedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MatchStatus tells the caller why a score may be zero.
type MatchStatus string

const (
	MatchSuccess                MatchStatus = "success"
	MatchEmbeddingsUnavailable  MatchStatus = "embeddings_unavailable"
	MatchIncompatibleEmbeddings MatchStatus = "incompatible_embeddings"
)

// MatchReport is the outcome of comparing one resume against one job.
// MatchScore is always on the 0-100 scale.
type MatchReport struct {
	ResumeID      string      `json:"resume_id"`
	JobID         string      `json:"job_id"`
	JobTitle      string      `json:"job_title,omitempty"`
	MatchScore    float64     `json:"match_score"`
	Status        MatchStatus `json:"status"`
	MissingSkills []string    `json:"missing_skills"`
	ResumeSkills  []string    `json:"resume_skills"`
	JobSkills     []string    `json:"job_skills"`
}

type SimilarJob struct {
	JobID      string  `json:"job_id"`
	Title      string  `json:"title"`
	MatchScore float64 `json:"match_score"`
}

type JobSearchHit struct {
	JobID string  `json:"job_id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// QAEntry is one interview question with its suggested answer.
type QAEntry struct {
	Question        string   `json:"question"`
	SuggestedAnswer string   `json:"suggested_answer"`
	Keywords        []string `json:"keywords"`
}

type CareerInsights struct {
	CareerPaths             []string `json:"career_paths"`
	SkillGaps               []string `json:"skill_gaps"`
	LearningRecommendations []string `json:"learning_recommendations"`
	MarketOutlook           string   `json:"market_outlook"`
	SalaryExpectations      string   `json:"salary_expectations"`
}

// NewCareerInsights returns insights with every field at its default.
func NewCareerInsights() CareerInsights {
	return CareerInsights{
		CareerPaths:             []string{},
		SkillGaps:               []string{},
		LearningRecommendations: []string{},
		MarketOutlook:           InformationNotAvailable,
		SalaryExpectations:      InformationNotAvailable,
	}
}

// AdvisorStatus reports where generated content came from.
type AdvisorStatus string

const (
	AdvisorModel       AdvisorStatus = "model"
	AdvisorFallback    AdvisorStatus = "fallback"
	AdvisorUnavailable AdvisorStatus = "unavailable"
)

type InterviewQuestionsRequest struct {
	JobID          string   `json:"job_id"`
	ResumeID       string   `json:"resume_id"`
	JobTitle       string   `json:"job_title"`
	JobDescription string   `json:"job_description"`
	Skills         []string `json:"skills"`
	Count          int      `json:"count"`
}

type InterviewQuestionsResponse struct {
	Status    AdvisorStatus `json:"status"`
	Questions []QAEntry     `json:"questions"`
	Message   string        `json:"message,omitempty"`
}

type CareerInsightsRequest struct {
	ResumeID       string   `json:"resume_id"`
	Skills         []string `json:"skills"`
	JobID          string   `json:"job_id"`
	JobTitle       string   `json:"job_title"`
	JobDescription string   `json:"job_description"`
	JobSkills      []string `json:"job_skills"`
}

type CareerInsightsResponse struct {
	Status   AdvisorStatus  `json:"status"`
	Insights CareerInsights `json:"insights"`
	Message  string         `json:"message,omitempty"`
}

// DocumentEvent is published after every processing run.
type DocumentEvent struct {
	Type            string   `json:"type"`
	Kind            string   `json:"kind"`
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	Skills          []string `json:"skills,omitempty"`
	EmbeddingModel  string   `json:"embedding_model,omitempty"`
	AnalysisVersion int      `json:"analysis_version"`
	Error           string   `json:"error,omitempty"`
	CorrelationID   string   `json:"correlation_id,omitempty"`
}
