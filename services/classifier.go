package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"civicvoice/logger"
	"civicvoice/model"
)

var (
	ErrClassifierDisabled = errors.New("classifier: no model configured")
	ErrEmptyResponse      = errors.New("classifier: model returned no text")
)

const maxTranscriptLength = 500

// GenerateRequest is one prompt, optionally with an inline media payload.
type GenerateRequest struct {
	Prompt          string
	Data            []byte
	MIMEType        string
	Temperature     *float32
	MaxOutputTokens int32
}

// ContentGenerator is the generative model behind the classifier.
type ContentGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type Classifier struct {
	gen ContentGenerator
	log *logger.Logger
}

// NewClassifier returns a classifier; a nil generator disables every call.
func NewClassifier(gen ContentGenerator, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{gen: gen, log: log}
}

func (c *Classifier) Enabled() bool {
	return c != nil && c.gen != nil
}

const classifyPrompt = `You are an expert civic complaint analyst. Analyze this complaint and provide:

1. Priority: CRITICAL, HIGH, MEDIUM, or LOW
2. Category: Road, Water, Electricity, Garbage, or Other
3. Brief analysis: Explain the issue, potential impact, and suggested action (2-3 sentences)

Complaint: %q
Category chosen by the citizen: %s

Priority Guidelines:
- CRITICAL: Safety hazards, major infrastructure failures, health emergencies
- HIGH: Significant disruptions, urgent repairs needed, affects many people
- MEDIUM: Important but not urgent, moderate impact
- LOW: Minor issues, cosmetic problems, low impact

Respond in this exact format:
Priority: [PRIORITY]
Category: [CATEGORY]
Analysis: [Your detailed analysis explaining why this priority was assigned and what action should be taken]
`

const transcribePrompt = "Transcribe this audio to text accurately. Rules: 1) Return only the clean transcribed text 2) Remove repetitive words or phrases 3) Fix grammar and punctuation 4) If the audio is unclear, return 'Audio unclear - please try again' 5) Maximum 500 characters"

const imagePrompt = "Analyze this civic complaint image. Describe what you see, identify the problem, assess severity, and suggest priority level (CRITICAL/HIGH/MEDIUM/LOW). Focus on infrastructure issues, safety hazards, or civic problems."

// Classify asks the model for a priority, category and short analysis.
// When the model cannot be reached the fallback analysis is returned
// together with the error.
func (c *Classifier) Classify(ctx context.Context, description string, category model.Category) (model.Analysis, error) {
	fallback := model.Analysis{
		Priority: model.PriorityMedium,
		Category: category,
		Text:     FallbackAnalysis(model.PriorityMedium, category),
	}
	if !c.Enabled() {
		return fallback, ErrClassifierDisabled
	}

	raw, err := c.gen.Generate(ctx, GenerateRequest{
		Prompt: fmt.Sprintf(classifyPrompt, description, category),
	})
	if err != nil {
		return fallback, fmt.Errorf("classify: %w", err)
	}

	p, cat, text := ParseClassification(raw)
	c.log.Debug("classification parsed", "priority", p, "category", cat)
	return model.Analysis{Priority: p, Category: cat, Text: text}, nil
}

// Transcribe turns a recorded voice complaint into cleaned text.
func (c *Classifier) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if !c.Enabled() {
		return "", ErrClassifierDisabled
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	raw, err := c.gen.Generate(ctx, GenerateRequest{
		Prompt:          transcribePrompt,
		Data:            audio,
		MIMEType:        mimeType,
		Temperature:     float32Ptr(0.1),
		MaxOutputTokens: 150,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return truncateRunes(CleanRepetitiveText(text), maxTranscriptLength), nil
}

// DescribeImage returns the model's free-text reading of a complaint photo.
func (c *Classifier) DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !c.Enabled() {
		return "", ErrClassifierDisabled
	}
	raw, err := c.gen.Generate(ctx, GenerateRequest{
		Prompt:   imagePrompt,
		Data:     data,
		MIMEType: mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// FallbackAnalysis is stored when the model gave a priority but no reasoning.
func FallbackAnalysis(p model.Priority, c model.Category) string {
	return fmt.Sprintf("AI Analysis: This appears to be a %s priority %s issue that requires attention from the relevant municipal department. The complaint has been categorized and will be processed accordingly.",
		strings.ToLower(string(p)), strings.ToLower(string(c)))
}

var (
	codeFence     = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*(.*?)\\s*```\\s*$")
	priorityLine  = regexp.MustCompile(`(?i)Priority:\s*\**\s*(CRITICAL|HIGH|MEDIUM|LOW)`)
	categoryLine  = regexp.MustCompile(`(?i)Category:\s*\**\s*(\w+)`)
	analysisLine  = regexp.MustCompile(`(?is)Analysis:\s*\**\s*(.+)`)
	priorityWords = regexp.MustCompile(`(?i)\b(critical|high|medium|low)\b`)
)

type classificationJSON struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
	Analysis string `json:"analysis"`
}

// ParseClassification reads a model reply in JSON or "Priority:" line form.
// It always yields a valid priority and category.
func ParseClassification(raw string) (model.Priority, model.Category, string) {
	body := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	var (
		priority model.Priority
		category string
		analysis string
	)

	var js classificationJSON
	if strings.HasPrefix(body, "{") && json.Unmarshal([]byte(body), &js) == nil {
		if p, ok := model.ParsePriority(js.Priority); ok {
			priority = p
		}
		category = js.Category
		analysis = strings.TrimSpace(js.Analysis)
	} else {
		if m := priorityLine.FindStringSubmatch(body); m != nil {
			priority, _ = model.ParsePriority(m[1])
		}
		if m := categoryLine.FindStringSubmatch(body); m != nil {
			category = m[1]
		}
		if m := analysisLine.FindStringSubmatch(body); m != nil {
			analysis = strings.TrimSpace(m[1])
		}
	}

	if priority == "" {
		priority = model.PriorityMedium
		if m := priorityWords.FindStringSubmatch(body); m != nil {
			priority, _ = model.ParsePriority(m[1])
		}
	}

	cat, ok := model.ParseCategory(category)
	if !ok {
		cat = model.CategoryOther
	}
	if analysis == "" {
		analysis = FallbackAnalysis(priority, cat)
	}
	return priority, cat, analysis
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func float32Ptr(v float32) *float32 {
	return &v
}
