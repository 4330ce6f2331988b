package services

import (
	"fmt"
	"strings"
)

const (
	promptJobDescriptionLimit  = 800
	promptInsightsJobDescLimit = 300
	promptQuestionSkillLimit   = 15
	promptInsightsSkillLimit   = 20
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildInterviewQuestionsPrompt asks for count questions in the
// QUESTION / SUGGESTED_ANSWER / KEYWORDS line format.
func (pb *PromptBuilder) BuildInterviewQuestionsPrompt(jobTitle, jobDescription string, skills []string, count int) string {
	return fmt.Sprintf(`You are an experienced technical interviewer preparing questions for a %s position.

Job Description: %s
Candidate Skills: %s

Generate %d interview questions.

FORMAT REQUIREMENTS:
For each question, provide exactly these three lines:
QUESTION: [The interview question]
SUGGESTED_ANSWER: [A concise model answer, 3-4 sentences max]
KEYWORDS: [comma,separated,keywords,expected,in,answer]

Example:
QUESTION: What experience do you have with microcontroller programming?
SUGGESTED_ANSWER: I have hands-on experience with Arduino and Raspberry Pi, where I built projects involving sensor integration and data processing. For example, I created a temperature monitoring system that collected sensor data and displayed it on an LCD.
KEYWORDS: Arduino,Raspberry Pi,sensor integration,data processing

Make the questions specific to the job description and the candidate's skills. Do not add any other text.`,
		jobTitle,
		truncateRunes(jobDescription, promptJobDescriptionLimit),
		strings.Join(firstN(skills, promptQuestionSkillLimit), ", "),
		count,
	)
}

// BuildCareerInsightsPrompt asks for the sectioned career insights reply.
// Job fields are optional.
func (pb *PromptBuilder) BuildCareerInsightsPrompt(skills []string, jobTitle, jobDescription string, jobSkills []string) string {
	var sb strings.Builder

	sb.WriteString("Analyze this skill set and provide career insights for the candidate.\n")
	sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(firstN(skills, promptInsightsSkillLimit), ", ")))

	if jobTitle != "" {
		sb.WriteString(fmt.Sprintf("Target Job Role: %s\n", jobTitle))
	}
	if jobDescription != "" {
		sb.WriteString(fmt.Sprintf("Job Description: %s\n", truncateRunes(jobDescription, promptInsightsJobDescLimit)))
	}
	if len(jobSkills) > 0 {
		sb.WriteString(fmt.Sprintf("Required Skills for Job: %s\n", strings.Join(jobSkills, ", ")))
	}

	sb.WriteString(`
Provide insights in this structured format:

Career Paths:
1. [First career path suggestion]
2. [Second career path suggestion]
3. [Third career path suggestion]

Skill Gaps:
- [First high-demand skill to learn]
- [Second high-demand skill to learn]
- [Third high-demand skill to learn]

Learning Recommendations:
- [First specific technology/course]
- [Second specific technology/course]
- [Third specific technology/course]

Market Outlook: [Brief analysis of job market opportunities]

Salary Expectations: [Entry-level and short-term projections]

Keep it concise, practical, and actionable.`)

	if jobTitle != "" {
		sb.WriteString(fmt.Sprintf("\n\nFocus specifically on preparing for the %s role and bridging any skill gaps.", jobTitle))
	}

	return sb.String()
}

// BuildEntityPrompt asks for organisations and products named in text.
func (pb *PromptBuilder) BuildEntityPrompt(text string) string {
	return fmt.Sprintf(`Extract named entities from the following text. Only report organisations (label ORG) and products, tools or technologies (label PRODUCT).

TEXT:
%s

Return ONLY valid JSON in this format:
{"entities": [{"text": "<entity as written>", "label": "ORG|PRODUCT"}]}`, text)
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
