// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest turns acquired paper content into reader-facing material:
// a structured summary and a sentence-by-sentence abstract translation.
package digest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// maxBodyChars bounds how much body text goes into the summarization prompt.
const maxBodyChars = 10000

// defaultLanguage is used when the configuration names none.
const defaultLanguage = "Korean"

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Summarizer produces structured paper summaries in the configured language.
type Summarizer struct {
	client     llm.Client
	language   string
	maxRetries int
}

// NewSummarizer returns a Summarizer using the given client.
func NewSummarizer(client llm.Client, cfg types.AIConfig) *Summarizer {
	language := cfg.Language
	if language == "" {
		language = defaultLanguage
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Summarizer{client: client, language: language, maxRetries: maxRetries}
}

const summarizeSystemPrompt = `You are an expert in bioinformatics and AI research.
Summarize papers clearly in %s. Keep technical terms in English,
adding them in parentheses after the translated term where helpful.`

const summarizeTemplate = `Summarize the following paper in %s.

## Paper
- Title: %s
- Journal: %s
- Authors: %s

## Abstract
%s

## Body (partial)
%s

---

Use this structure:

### Key Findings
- (1-3 main findings as bullet points)

### Methods
- (the main methods and techniques, briefly)

### Significance & Limitations
- (what this work contributes and where it falls short)

### One-line Summary
(the whole paper in one sentence)
`

// Summarize produces a structured summary of one paper. When bodyText is
// empty the summary is built from the abstract alone, and the prompt says so
// to keep the model from inventing results.
func (s *Summarizer) Summarize(ctx context.Context, paper types.Paper, bodyText string) (string, error) {
	body := bodyText
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars] + "\n... (truncated)"
	}
	if body == "" {
		body = "(no body text available; summarize from the abstract alone)"
	}
	abstract := paper.Abstract
	if abstract == "" {
		abstract = "(no abstract available)"
	}

	prompt := fmt.Sprintf(summarizeTemplate,
		s.language, paper.Title, paper.Journal, formatAuthors(paper.Authors), abstract, body)
	system := fmt.Sprintf(summarizeSystemPrompt, s.language)

	summary, err := generateWithRetry(ctx, s.client, system, prompt, s.maxRetries)
	if err != nil {
		return "", fmt.Errorf("summarizing %q: %w", paper.Title, err)
	}
	return strings.TrimSpace(summary), nil
}

// formatAuthors lists at most five authors.
func formatAuthors(authors []string) string {
	if len(authors) == 0 {
		return "(unknown)"
	}
	if len(authors) > 5 {
		return strings.Join(authors[:5], ", ") + "..."
	}
	return strings.Join(authors, ", ")
}

// Translator renders an abstract as original/translated sentence pairs.
type Translator struct {
	client     llm.Client
	language   string
	maxRetries int
}

// NewTranslator returns a Translator using the given client.
func NewTranslator(client llm.Client, cfg types.AIConfig) *Translator {
	language := cfg.Language
	if language == "" {
		language = defaultLanguage
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Translator{client: client, language: language, maxRetries: maxRetries}
}

const translateSystemPrompt = `You are a professional translator for bioinformatics,
cancer research, and AI/ML papers. Translate abstract sentences into %s
accurately and naturally. Keep technical terms, gene names, protein names,
algorithm names, and statistics in the original English.`

const translateTemplate = `Translate the following abstract into %s, sentence by sentence.

## Abstract
%s

---

Rules:
1. Keep every English sentence complete; never split a sentence mid-way.
2. Split on sentence-final periods, question marks, and exclamation marks.
   Abbreviations like "e.g.", "i.e.", "et al." do not end a sentence.
3. Keep technical terms, gene and protein names, and statistics in English.

Output format (exactly):

[EN] First complete English sentence.
[TR] Its translation.

[EN] Second complete English sentence.
[TR] Its translation.

(repeat for every sentence)
`

// Translate translates an abstract sentence by sentence. An empty abstract
// yields no pairs and no API call.
func (t *Translator) Translate(ctx context.Context, abstract string) ([]types.SentencePair, error) {
	if strings.TrimSpace(abstract) == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(translateTemplate, t.language, abstract)
	system := fmt.Sprintf(translateSystemPrompt, t.language)

	response, err := generateWithRetry(ctx, t.client, system, prompt, t.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("translating abstract: %w", err)
	}

	pairs := parseSentencePairs(response)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no sentence pairs in translation response")
	}
	return pairs, nil
}

// parseSentencePairs reads the [EN]/[TR] marker format. Unmarked lines are
// continuations of whichever side was last opened; models wrap long
// sentences despite the instructions.
func parseSentencePairs(response string) []types.SentencePair {
	var pairs []types.SentencePair
	var original, translated string
	inTranslation := false

	flush := func() {
		if original != "" && translated != "" {
			pairs = append(pairs, types.SentencePair{Original: original, Translated: translated})
		}
		original, translated = "", ""
		inTranslation = false
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "[EN]"):
			flush()
			original = strings.TrimSpace(strings.TrimPrefix(line, "[EN]"))
		case strings.HasPrefix(line, "[TR]"):
			translated = strings.TrimSpace(strings.TrimPrefix(line, "[TR]"))
			inTranslation = true
		case inTranslation && translated != "":
			translated += " " + line
		case !inTranslation && original != "":
			original += " " + line
		}
	}
	flush()
	return pairs
}

// generateWithRetry calls the client with exponential backoff.
func generateWithRetry(ctx context.Context, client llm.Client, system, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := client.Generate(ctx, system, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
