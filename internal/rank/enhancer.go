package rank

import "strings"

// Topic is a keyword-triggered expansion template.
type Topic struct {
	Name     string
	Triggers []string
	Terms    string
}

// DefaultTopics are checked in order; the first topic with a trigger in the query wins.
var DefaultTopics = []Topic{
	{
		Name:     "weather",
		Triggers: []string{"weather", "temperature", "rain", "forecast", "climate"},
		Terms:    "weather forecast temperature conditions humidity wind precipitation climate meteorology today current",
	},
	{
		Name:     "tech",
		Triggers: []string{"laptop", "computer", "tech", "review", "specifications"},
		Terms:    "specifications performance reviews comparison features price 2025 technology hardware",
	},
	{
		Name:     "programming",
		Triggers: []string{"python", "programming", "code", "tutorial", "learn"},
		Terms:    "programming tutorial guide code examples syntax documentation functions variables",
	},
	{
		Name:     "recipe",
		Triggers: []string{"recipe", "cooking", "food", "ingredients"},
		Terms:    "recipe ingredients cooking instructions preparation method cuisine food",
	},
	{
		Name:     "news",
		Triggers: []string{"news", "latest", "today", "current"},
		Terms:    "news latest updates current events today breaking recent",
	},
}

// DefaultGenericTerms are appended when no topic matches.
const DefaultGenericTerms = "information details guide overview analysis explanation"

// Enhancer expands a query with topic vocabulary when no model is available.
type Enhancer struct {
	topics  []Topic
	generic string
}

// EnhancerOption configures the enhancer.
type EnhancerOption func(*Enhancer)

// WithTopics replaces the topic templates.
func WithTopics(topics []Topic) EnhancerOption {
	return func(e *Enhancer) {
		e.topics = topics
	}
}

// WithExtraTopic adds a topic checked after the existing ones.
func WithExtraTopic(t Topic) EnhancerOption {
	return func(e *Enhancer) {
		e.topics = append(e.topics, t)
	}
}

// WithGenericTerms sets the terms used when no topic matches.
func WithGenericTerms(terms string) EnhancerOption {
	return func(e *Enhancer) {
		e.generic = terms
	}
}

// NewEnhancer creates an enhancer with the default topics.
func NewEnhancer(opts ...EnhancerOption) *Enhancer {
	e := &Enhancer{
		topics:  append([]Topic(nil), DefaultTopics...),
		generic: DefaultGenericTerms,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enhance returns the query followed by the matching topic's terms.
// Triggers match as substrings of the lowercased query.
func (e *Enhancer) Enhance(query string) string {
	return query + " " + e.terms(strings.ToLower(query))
}

// Topic returns the name of the topic that would be applied, or "generic".
func (e *Enhancer) Topic(query string) string {
	lower := strings.ToLower(query)
	for _, t := range e.topics {
		if t.matches(lower) {
			return t.Name
		}
	}
	return "generic"
}

func (e *Enhancer) terms(lower string) string {
	for _, t := range e.topics {
		if t.matches(lower) {
			return t.Terms
		}
	}
	return e.generic
}

func (t Topic) matches(lower string) bool {
	for _, trig := range t.Triggers {
		if strings.Contains(lower, trig) {
			return true
		}
	}
	return false
}
