package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Taxonomy is the fixed catalogue of recognizable skills, grouped by
// category. Category labels are informational only.
type Taxonomy struct {
	categories map[string][]string
	terms      []string
}

var defaultSkillCategories = map[string][]string{
	"programming": {
		"python", "javascript", "java", "c++", "c#", "ruby", "go", "rust",
		"swift", "kotlin", "php", "html", "css", "typescript",
	},
	"web_frameworks": {
		"django", "flask", "react", "angular", "vue", "spring", "express",
		"laravel", "bootstrap", "node.js", "django rest framework",
	},
	"databases": {
		"mysql", "postgresql", "mongodb", "redis", "sqlite", "oracle", "sql",
		"nosql", "sql server",
	},
	"cloud": {
		"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "jenkins",
		"ci/cd", "cloud formation",
	},
	"ml_ai": {
		"machine learning", "deep learning", "tensorflow", "pytorch", "nlp",
		"computer vision", "neural networks", "scikit-learn", "opencv",
	},
	"tools": {
		"git", "jenkins", "linux", "bash", "ansible", "jira", "confluence",
		"gitlab", "github",
	},
	"electronics": {
		"arduino", "raspberry pi", "circuit design", "embedded systems",
		"pcb design", "iot", "microcontroller", "sensors",
		"wireless communication",
	},
}

// DefaultTaxonomy returns the built-in skill catalogue.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(defaultSkillCategories)
}

func NewTaxonomy(categories map[string][]string) *Taxonomy {
	t := &Taxonomy{categories: make(map[string][]string, len(categories))}

	seen := make(map[string]struct{})
	for category, terms := range categories {
		for _, term := range terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			t.categories[category] = append(t.categories[category], term)
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			t.terms = append(t.terms, term)
		}
	}
	sort.Strings(t.terms)

	return t
}

// LoadTaxonomy reads a TOML file of `category = ["term", ...]` pairs.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	var categories map[string][]string
	if _, err := toml.DecodeFile(path, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode skill taxonomy %s: %w", path, err)
	}

	t := NewTaxonomy(categories)
	if len(t.terms) == 0 {
		return nil, fmt.Errorf("skill taxonomy %s has no terms", path)
	}

	return t, nil
}

// Terms returns every distinct term, sorted.
func (t *Taxonomy) Terms() []string {
	return t.terms
}

func (t *Taxonomy) Categories() []string {
	out := make([]string, 0, len(t.categories))
	for c := range t.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ContainsAnyTerm reports whether s contains some term as a plain substring.
func (t *Taxonomy) ContainsAnyTerm(s string) bool {
	s = strings.ToLower(s)
	for _, term := range t.terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
