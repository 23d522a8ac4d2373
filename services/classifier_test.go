package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"civicvoice/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply string
	err   error
	reqs  []GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		priority model.Priority
		category model.Category
		analysis string
	}{
		{
			name:     "line format",
			raw:      "Priority: HIGH\nCategory: Water\nAnalysis: Burst main.\nCrews needed today.",
			priority: model.PriorityHigh,
			category: model.CategoryWater,
			analysis: "Burst main.\nCrews needed today.",
		},
		{
			name:     "fenced json",
			raw:      "```json\n{\"priority\":\"critical\",\"category\":\"Electricity\",\"analysis\":\"Live wire on the road.\"}\n```",
			priority: model.PriorityCritical,
			category: model.CategoryElectricity,
			analysis: "Live wire on the road.",
		},
		{
			name:     "markdown bold labels",
			raw:      "**Priority:** LOW\n**Category:** Garbage\n**Analysis:** Bin overflowing.",
			priority: model.PriorityLow,
			category: model.CategoryGarbage,
			analysis: "Bin overflowing.",
		},
		{
			name:     "unknown category becomes other",
			raw:      "Priority: MEDIUM\nCategory: Parks\nAnalysis: Broken bench.",
			priority: model.PriorityMedium,
			category: model.CategoryOther,
			analysis: "Broken bench.",
		},
		{
			name:     "free text keyword scan",
			raw:      "This looks like a high risk situation for pedestrians.",
			priority: model.PriorityHigh,
			category: model.CategoryOther,
			analysis: FallbackAnalysis(model.PriorityHigh, model.CategoryOther),
		},
		{
			name:     "nothing usable",
			raw:      "",
			priority: model.PriorityMedium,
			category: model.CategoryOther,
			analysis: FallbackAnalysis(model.PriorityMedium, model.CategoryOther),
		},
		{
			name:     "highway does not count as high",
			raw:      "Pothole on the highway",
			priority: model.PriorityMedium,
			category: model.CategoryOther,
			analysis: FallbackAnalysis(model.PriorityMedium, model.CategoryOther),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, c, a := ParseClassification(tt.raw)
			assert.Equal(t, tt.priority, p)
			assert.Equal(t, tt.category, c)
			assert.Equal(t, tt.analysis, a)
		})
	}
}

func TestFallbackAnalysis(t *testing.T) {
	got := FallbackAnalysis(model.PriorityHigh, model.CategoryRoad)
	assert.True(t, strings.HasPrefix(got, "AI Analysis: This appears to be a high priority road issue"))
}

func TestClassifierClassify(t *testing.T) {
	gen := &fakeGenerator{reply: "Priority: CRITICAL\nCategory: Electricity\nAnalysis: Exposed cable."}
	c := NewClassifier(gen, nil)

	a, err := c.Classify(context.Background(), "Live wire hanging near school", model.CategoryElectricity)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityCritical, a.Priority)
	assert.Equal(t, model.CategoryElectricity, a.Category)
	assert.Equal(t, "Exposed cable.", a.Text)
	require.Len(t, gen.reqs, 1)
	assert.Contains(t, gen.reqs[0].Prompt, "Live wire hanging near school")
	assert.Empty(t, gen.reqs[0].Data)
}

func TestClassifierClassifyFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	c := NewClassifier(gen, nil)

	a, err := c.Classify(context.Background(), "Garbage everywhere", model.CategoryGarbage)
	require.Error(t, err)
	assert.Equal(t, model.PriorityMedium, a.Priority)
	assert.Equal(t, model.CategoryGarbage, a.Category)
	assert.NotEmpty(t, a.Text)
}

func TestClassifierDisabled(t *testing.T) {
	c := NewClassifier(nil, nil)
	assert.False(t, c.Enabled())

	a, err := c.Classify(context.Background(), "x", model.CategoryRoad)
	assert.ErrorIs(t, err, ErrClassifierDisabled)
	assert.Equal(t, model.PriorityMedium, a.Priority)

	_, err = c.Transcribe(context.Background(), []byte("a"), "audio/webm")
	assert.ErrorIs(t, err, ErrClassifierDisabled)
	_, err = c.DescribeImage(context.Background(), []byte("a"), "image/png")
	assert.ErrorIs(t, err, ErrClassifierDisabled)
}

func TestClassifierTranscribe(t *testing.T) {
	gen := &fakeGenerator{reply: "  the the the pipe is leaking. The pipe is leaking.  "}
	c := NewClassifier(gen, nil)

	text, err := c.Transcribe(context.Background(), []byte("audio"), "")
	require.NoError(t, err)
	assert.Equal(t, "the the pipe is leaking.", text)

	require.Len(t, gen.reqs, 1)
	req := gen.reqs[0]
	assert.Equal(t, "audio/webm", req.MIMEType)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.1, *req.Temperature, 1e-6)
	assert.EqualValues(t, 150, req.MaxOutputTokens)
}

func TestClassifierTranscribeCapsLength(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("word")
		b.WriteByte(byte('a' + i%26))
		b.WriteByte(' ')
	}
	c := NewClassifier(&fakeGenerator{reply: b.String()}, nil)

	text, err := c.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(text)), maxTranscriptLength)
}

func TestClassifierTranscribeEmpty(t *testing.T) {
	c := NewClassifier(&fakeGenerator{reply: "   "}, nil)
	_, err := c.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClassifierDescribeImage(t *testing.T) {
	gen := &fakeGenerator{reply: "A large pothole. Priority HIGH."}
	c := NewClassifier(gen, nil)

	text, err := c.DescribeImage(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "A large pothole. Priority HIGH.", text)
	assert.Equal(t, "image/jpeg", gen.reqs[0].MIMEType)
}
