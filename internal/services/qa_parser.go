package services

import (
	"strings"

	"alfredoptarigan/resume-matcher/internal/models"
)

const (
	questionMarker        = "QUESTION:"
	suggestedAnswerMarker = "SUGGESTED_ANSWER:"
	answerMarker          = "ANSWER:"
	keywordsMarker        = "KEYWORDS:"

	minQuestionLength = 10
)

type qaField int

const (
	qaFieldNone qaField = iota
	qaFieldQuestion
	qaFieldAnswer
	qaFieldKeywords
)

// qaRecordParser accumulates one record from the lines of a single
// QUESTION: block.
type qaRecordParser struct {
	field  qaField
	record models.QAEntry
}

// ParseInterviewQuestions turns a free-form model reply into exactly count
// entries when the fallback pool allows it. Parsed entries come first,
// fallback entries fill the remainder.
func ParseInterviewQuestions(raw string, count int) []models.QAEntry {
	if count <= 0 {
		return []models.QAEntry{}
	}

	entries := make([]models.QAEntry, 0, count)

	chunks := strings.Split(raw, questionMarker)
	// The text before the first marker is preamble.
	for _, chunk := range chunks[1:] {
		if entry, ok := parseQABlock(chunk); ok {
			entries = append(entries, entry)
		}
	}

	if len(entries) < count {
		entries = append(entries, FallbackQuestions(count-len(entries))...)
	}
	if len(entries) > count {
		entries = entries[:count]
	}

	return entries
}

// parseQABlock parses the text following one QUESTION: marker. The first
// line is the marker's own payload.
func parseQABlock(chunk string) (models.QAEntry, bool) {
	p := &qaRecordParser{}

	lines := strings.Split(strings.TrimSpace(chunk), "\n")
	for i, line := range lines {
		line = cleanMarkdownLine(line)
		if i == 0 {
			p.setQuestion(line)
			continue
		}
		if line == "" {
			continue
		}
		p.consume(line)
	}

	return p.result()
}

func (p *qaRecordParser) consume(line string) {
	switch {
	case strings.HasPrefix(line, questionMarker):
		p.setQuestion(strings.TrimPrefix(line, questionMarker))
	case strings.HasPrefix(line, suggestedAnswerMarker):
		p.field = qaFieldAnswer
		p.record.SuggestedAnswer = cleanFieldValue(strings.TrimPrefix(line, suggestedAnswerMarker))
	case strings.HasPrefix(line, answerMarker):
		p.field = qaFieldAnswer
		p.record.SuggestedAnswer = cleanFieldValue(strings.TrimPrefix(line, answerMarker))
	case strings.HasPrefix(line, keywordsMarker):
		p.field = qaFieldKeywords
		p.record.Keywords = splitKeywords(strings.TrimPrefix(line, keywordsMarker))
	case p.record.Question == "" && strings.Contains(line, "?") && len(line) > minQuestionLength:
		p.field = qaFieldQuestion
		p.record.Question = line
	case p.field == qaFieldAnswer && len(line) > 3:
		if p.record.SuggestedAnswer == "" {
			p.record.SuggestedAnswer = line
		} else {
			p.record.SuggestedAnswer += " " + line
		}
	}
}

// setQuestion keeps a marker payload only when it is long enough to be a
// question; a bare number or label leaves the record open for the next line.
func (p *qaRecordParser) setQuestion(value string) {
	value = cleanFieldValue(value)
	if len(value) <= minQuestionLength {
		return
	}
	p.field = qaFieldQuestion
	p.record.Question = value
}

func (p *qaRecordParser) result() (models.QAEntry, bool) {
	if len(p.record.Question) <= minQuestionLength {
		return models.QAEntry{}, false
	}
	if p.record.Keywords == nil {
		p.record.Keywords = []string{}
	}
	return p.record, true
}

// cleanMarkdownLine strips surrounding whitespace and leading markdown
// emphasis, heading and quote characters.
func cleanMarkdownLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "*#> ")
	return strings.TrimSpace(line)
}

func cleanFieldValue(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "*")
	return strings.TrimSpace(value)
}

func splitKeywords(value string) []string {
	keywords := []string{}
	for _, k := range strings.Split(cleanFieldValue(value), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

var fallbackQuestionPool = []models.QAEntry{
	{
		Question:        "What experience do you have with microcontroller programming?",
		SuggestedAnswer: "I have practical experience with Arduino and Raspberry Pi, developing projects that involve sensor integration, data processing, and communication protocols. I've worked on IoT projects collecting sensor data and implementing control algorithms.",
		Keywords:        []string{"Arduino", "Raspberry Pi", "sensors", "data processing", "IoT", "communication protocols"},
	},
	{
		Question:        "Describe a challenging circuit design problem you solved.",
		SuggestedAnswer: "I once designed a power supply circuit that was experiencing noise issues. I used oscilloscope measurements to identify the noise source, added proper filtering capacitors, and implemented better grounding. This reduced noise significantly and improved reliability.",
		Keywords:        []string{"circuit design", "noise reduction", "filtering", "oscilloscope", "troubleshooting", "power supply"},
	},
	{
		Question:        "How do you approach debugging embedded software issues?",
		SuggestedAnswer: "I start by reproducing the issue, then use debuggers and serial output to isolate the problem area. I check hardware and software interactions, review timing, and validate sensor readings. For complex issues I use a logic analyzer to watch signal timing.",
		Keywords:        []string{"debugging", "reproduction", "debuggers", "hardware-software interaction", "timing analysis", "logic analyzer"},
	},
	{
		Question:        "Tell me about a project where you had to learn a new technology quickly.",
		SuggestedAnswer: "On a recent project I had to pick up a framework I had not used before. I read the official documentation, built a small prototype to validate the approach, and then applied it to the real codebase while asking for early code review.",
		Keywords:        []string{"learning", "prototyping", "documentation", "code review", "adaptability"},
	},
	{
		Question:        "How do you make sure the code you write is reliable and maintainable?",
		SuggestedAnswer: "I write small, focused functions with clear names, add unit tests for the important paths, and keep changes reviewable. I rely on version control, continuous integration and code review to catch regressions early.",
		Keywords:        []string{"unit tests", "code review", "version control", "continuous integration", "readability"},
	},
	{
		Question:        "Describe a time you worked with a team to deliver a project under a tight deadline.",
		SuggestedAnswer: "We split the work into small milestones, agreed on priorities with stakeholders, and held short daily check-ins. I took ownership of a critical component and communicated blockers early, which let us ship on time.",
		Keywords:        []string{"teamwork", "prioritization", "communication", "ownership", "deadlines"},
	},
	{
		Question:        "How would you design a system that collects and processes data from many sensors?",
		SuggestedAnswer: "I would have devices publish readings over a lightweight protocol such as MQTT to a broker, buffer them in a queue, and process them with stateless workers that write to a time series store. I would add monitoring and handle devices going offline.",
		Keywords:        []string{"MQTT", "message broker", "queue", "scalability", "time series", "monitoring"},
	},
	{
		Question:        "What steps do you take when a production system starts failing?",
		SuggestedAnswer: "I first limit the impact, for example by rolling back the latest change. Then I check logs and metrics to locate the failing component, fix the root cause, and write a short postmortem with follow-up actions.",
		Keywords:        []string{"incident response", "rollback", "logs", "metrics", "root cause", "postmortem"},
	},
	{
		Question:        "How do you decide between competing technical solutions?",
		SuggestedAnswer: "I list the requirements and constraints, compare the options on complexity, performance, cost and team familiarity, and build a quick proof of concept when the trade-off is unclear. I document the decision so others can follow the reasoning.",
		Keywords:        []string{"trade-offs", "requirements", "proof of concept", "documentation", "decision making"},
	},
	{
		Question:        "Where do you see your skills growing in the next two years?",
		SuggestedAnswer: "I want to deepen my expertise in the core technologies of this role while broadening into system design. I plan to take on larger ownership, mentor newer teammates, and keep learning through courses and side projects.",
		Keywords:        []string{"career growth", "system design", "mentoring", "continuous learning", "ownership"},
	},
}

// FallbackQuestions returns up to n pre-written entries. The pool is never
// cycled, so n beyond its size yields fewer entries.
func FallbackQuestions(n int) []models.QAEntry {
	if n <= 0 {
		return []models.QAEntry{}
	}
	if n > len(fallbackQuestionPool) {
		n = len(fallbackQuestionPool)
	}

	out := make([]models.QAEntry, n)
	for i := 0; i < n; i++ {
		entry := fallbackQuestionPool[i]
		entry.Keywords = append([]string(nil), entry.Keywords...)
		out[i] = entry
	}
	return out
}

func FallbackQuestionPoolSize() int {
	return len(fallbackQuestionPool)
}
