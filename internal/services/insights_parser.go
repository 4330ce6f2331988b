package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"alfredoptarigan/resume-matcher/internal/models"
)

type insightSection int

const (
	sectionNone insightSection = iota
	sectionCareerPaths
	sectionSkillGaps
	sectionLearning
	sectionMarketOutlook
	sectionSalary
)

func (s insightSection) isList() bool {
	return s == sectionCareerPaths || s == sectionSkillGaps || s == sectionLearning
}

// Header phrases are checked in this order; the first match wins.
var insightHeaders = []struct {
	section insightSection
	phrases []string
}{
	{sectionCareerPaths, []string{"career path", "career paths"}},
	{sectionSkillGaps, []string{"skill gap", "skill gaps", "skills to learn"}},
	{sectionLearning, []string{"learning", "recommendations", "courses"}},
	{sectionMarketOutlook, []string{"market", "outlook", "opportunities"}},
	{sectionSalary, []string{"salary", "compensation"}},
}

// Free-text lines mentioning any of these look like headers and are skipped.
var insightSectionKeywords = []string{"career", "skill", "learning", "market", "salary"}

const (
	minListItemLength = 5
	minFreeTextLength = 10
)

var fallbackInsights = models.CareerInsights{
	CareerPaths: []string{
		"Embedded Systems Engineer",
		"IoT Developer",
		"Hardware Design Engineer",
	},
	SkillGaps: []string{
		"Learn PCB design and advanced embedded systems",
		"Gain experience with IoT protocols",
		"Master C++ and real-time operating systems",
	},
	LearningRecommendations: []string{},
	MarketOutlook:           "Strong demand for ECE professionals in automation and IoT",
	SalaryExpectations:      "Entry-level: ₹4-6 LPA, 2-year experience: ₹8-12 LPA",
}

type insightsParser struct {
	current  insightSection
	insights models.CareerInsights
}

// ParseCareerInsights reads the sectioned free-form reply of the model. A
// reply from which nothing could be recovered yields the fallback bundle.
func ParseCareerInsights(raw string) models.CareerInsights {
	p := &insightsParser{insights: models.NewCareerInsights()}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p.consume(line)
	}

	if p.isDefault() {
		return FallbackCareerInsights()
	}
	return p.insights
}

func (p *insightsParser) consume(line string) {
	if section, ok := detectInsightHeader(line); ok {
		p.current = section
		if !section.isList() {
			p.inlineValue(line)
		}
		return
	}

	switch {
	case p.current.isList():
		if item, ok := listItem(line); ok {
			p.appendItem(item)
		}
	case p.current != sectionNone:
		if len(line) > minFreeTextLength && !mentionsSectionKeyword(line) {
			p.setText(line)
		}
	}
}

// inlineValue takes the text after the header colon, as in
// "Market Outlook: steady growth in automation".
func (p *insightsParser) inlineValue(line string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return
	}
	value := strings.TrimSpace(strings.Trim(strings.TrimSpace(line[idx+1:]), "*"))
	if len(value) > minFreeTextLength {
		p.setText(value)
	}
}

func (p *insightsParser) appendItem(item string) {
	switch p.current {
	case sectionCareerPaths:
		p.insights.CareerPaths = append(p.insights.CareerPaths, item)
	case sectionSkillGaps:
		p.insights.SkillGaps = append(p.insights.SkillGaps, item)
	case sectionLearning:
		p.insights.LearningRecommendations = append(p.insights.LearningRecommendations, item)
	}
}

func (p *insightsParser) setText(value string) {
	switch p.current {
	case sectionMarketOutlook:
		p.insights.MarketOutlook = value
	case sectionSalary:
		p.insights.SalaryExpectations = value
	}
}

func (p *insightsParser) isDefault() bool {
	in := p.insights
	return len(in.CareerPaths) == 0 &&
		len(in.SkillGaps) == 0 &&
		len(in.LearningRecommendations) == 0 &&
		in.MarketOutlook == models.InformationNotAvailable &&
		in.SalaryExpectations == models.InformationNotAvailable
}

func detectInsightHeader(line string) (insightSection, bool) {
	if !strings.Contains(line, ":") {
		return sectionNone, false
	}

	lower := strings.ToLower(line)
	for _, h := range insightHeaders {
		for _, phrase := range h.phrases {
			if strings.Contains(lower, phrase) {
				return h.section, true
			}
		}
	}
	return sectionNone, false
}

// listItem strips a numbered or bulleted marker and reports whether what is
// left is long enough to keep.
func listItem(line string) (string, bool) {
	if !looksLikeListItem(line) {
		return "", false
	}

	item := strings.TrimLeftFunc(line, func(r rune) bool {
		return unicode.IsDigit(r) || strings.ContainsRune(".)-•* ", r)
	})
	item = strings.TrimSpace(strings.Trim(item, "*"))

	return item, utf8.RuneCountInString(item) > minListItemLength
}

func looksLikeListItem(line string) bool {
	for _, prefix := range []string{"1.", "2.", "3.", "4.", "5.", "-", "•", "*"} {
		if strings.HasPrefix(line, prefix) && len(line) > 3 {
			return true
		}
	}

	if line[0] >= '0' && line[0] <= '9' {
		head := line
		if len(head) > 3 {
			head = head[:3]
		}
		return strings.Contains(head, ".")
	}
	return false
}

func mentionsSectionKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range insightSectionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FallbackCareerInsights returns a copy of the pre-written insights bundle.
func FallbackCareerInsights() models.CareerInsights {
	return models.CareerInsights{
		CareerPaths:             append([]string(nil), fallbackInsights.CareerPaths...),
		SkillGaps:               append([]string(nil), fallbackInsights.SkillGaps...),
		LearningRecommendations: []string{},
		MarketOutlook:           fallbackInsights.MarketOutlook,
		SalaryExpectations:      fallbackInsights.SalaryExpectations,
	}
}
