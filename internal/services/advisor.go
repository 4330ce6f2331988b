package services

import (
	"context"
	"errors"
	"log/slog"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
)

const (
	DefaultQuestionCount = 8
	MaxQuestionCount     = 20

	questionsTemperature = 0.7
	insightsTemperature  = 0.5
)

const (
	msgNoCredential      = "AI service unavailable. Please check your API key."
	msgNoCompatibleModel = "No compatible AI model found."
)

// AdvisorService generates interview questions and career insights with the
// generative model. It never fails: missing models give an "unavailable"
// result and upstream failures give fallback content.
type AdvisorService interface {
	GenerateInterviewQuestions(ctx context.Context, jobTitle, jobDescription string, skills []string, count int) models.InterviewQuestionsResponse
	CareerInsights(ctx context.Context, skills []string, jobTitle, jobDescription string, jobSkills []string) models.CareerInsightsResponse
}

type advisorService struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
	maxRetries    int
	log           *slog.Logger
}

func NewAdvisorService(generator TextGenerator, maxRetries int, log *slog.Logger) AdvisorService {
	if generator == nil {
		generator = NewUnavailableGenerator()
	}
	return &advisorService{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
		maxRetries:    maxRetries,
		log:           log.With("component", "advisor"),
	}
}

// GenerateInterviewQuestions implements AdvisorService.
func (a *advisorService) GenerateInterviewQuestions(ctx context.Context, jobTitle, jobDescription string, skills []string, count int) models.InterviewQuestionsResponse {
	log := logger.FromContext(ctx, a.log)
	count = NormalizeQuestionCount(count)

	prompt := a.promptBuilder.BuildInterviewQuestionsPrompt(jobTitle, jobDescription, skills, count)
	response, err := generateWithRetry(ctx, a.generator, prompt, questionsTemperature, a.maxRetries)

	switch {
	case errors.Is(err, ErrLLMUnavailable):
		log.Warn("interview questions unavailable", "error", err)
		msg := unavailableMessage(err)
		return models.InterviewQuestionsResponse{
			Status:    models.AdvisorUnavailable,
			Questions: []models.QAEntry{{Question: msg, Keywords: []string{}}},
			Message:   msg,
		}
	case err != nil:
		log.Error("interview question generation failed, using fallback", "error", err)
		return models.InterviewQuestionsResponse{
			Status:    models.AdvisorFallback,
			Questions: FallbackQuestions(count),
		}
	}

	log.Info("interview questions generated", "count", count, "response_length", len(response))
	return models.InterviewQuestionsResponse{
		Status:    models.AdvisorModel,
		Questions: ParseInterviewQuestions(response, count),
	}
}

// CareerInsights implements AdvisorService.
func (a *advisorService) CareerInsights(ctx context.Context, skills []string, jobTitle, jobDescription string, jobSkills []string) models.CareerInsightsResponse {
	log := logger.FromContext(ctx, a.log)

	prompt := a.promptBuilder.BuildCareerInsightsPrompt(skills, jobTitle, jobDescription, jobSkills)
	response, err := generateWithRetry(ctx, a.generator, prompt, insightsTemperature, a.maxRetries)

	switch {
	case errors.Is(err, ErrLLMUnavailable):
		log.Warn("career insights unavailable", "error", err)
		return models.CareerInsightsResponse{
			Status:   models.AdvisorUnavailable,
			Insights: models.NewCareerInsights(),
			Message:  unavailableMessage(err),
		}
	case err != nil:
		log.Error("career insights generation failed, using fallback", "error", err)
		return models.CareerInsightsResponse{
			Status:   models.AdvisorFallback,
			Insights: FallbackCareerInsights(),
		}
	}

	return models.CareerInsightsResponse{
		Status:   models.AdvisorModel,
		Insights: ParseCareerInsights(response),
	}
}

// NormalizeQuestionCount applies the default and the upper bound.
func NormalizeQuestionCount(count int) int {
	if count <= 0 {
		return DefaultQuestionCount
	}
	if count > MaxQuestionCount {
		return MaxQuestionCount
	}
	return count
}

func unavailableMessage(err error) string {
	if errors.Is(err, ErrNoCompatibleModel) {
		return msgNoCompatibleModel
	}
	return msgNoCredential
}
