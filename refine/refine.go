// Package refine tidies generated text before it is shown or spoken.
package refine

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const DefaultHistory = 10

// Connectives that mark a sentence as continuing the previous thought.
var connectives = []string{"however", "but", "and", "also", "additionally"}

type Refiner struct {
	max int

	mu      sync.Mutex
	history []string
}

func New(maxHistory int) *Refiner {
	if maxHistory <= 0 {
		maxHistory = DefaultHistory
	}
	return &Refiner{max: maxHistory}
}

// Clean normalizes whitespace, capitalizes the sentence and makes sure it
// ends with terminal punctuation.
func Clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "."
	}
	text = capitalize(text)
	if !endsSentence(text) {
		text += "."
	}
	return text
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// Context joins the last three refined outputs.
func (r *Refiner) Context() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.context()
}

func (r *Refiner) context() string {
	start := max(0, len(r.history)-3)
	return strings.Join(r.history[start:], " ")
}

// Refine cleans text and fits it to what came before. It does not record
// the result; Process does.
func (r *Refiner) Refine(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refine(text)
}

func (r *Refiner) refine(text string) string {
	text = Clean(text)
	ctx := r.context()
	if ctx == "" {
		return text
	}

	if strings.Contains(ctx, text) {
		return text
	}
	if strings.HasSuffix(ctx, "...") || !endsSentence(ctx) {
		return Clean(ctx + " " + text)
	}

	lower := strings.ToLower(text)
	for _, word := range connectives {
		if strings.HasPrefix(lower, word) {
			return text
		}
	}
	return "Additionally, " + text
}

// Process refines each output in order, remembering every result.
func (r *Refiner) Process(outputs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	refined := make([]string, 0, len(outputs))
	for _, out := range outputs {
		text := r.refine(out)
		r.history = append(r.history, text)
		if len(r.history) > r.max {
			r.history = r.history[1:]
		}
		refined = append(refined, text)
	}
	return refined
}
