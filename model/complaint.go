package model

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryRoad        Category = "Road"
	CategoryWater       Category = "Water"
	CategoryElectricity Category = "Electricity"
	CategoryGarbage     Category = "Garbage"
	CategoryOther       Category = "Other"
)

var Categories = []Category{CategoryRoad, CategoryWater, CategoryElectricity, CategoryGarbage, CategoryOther}

// ParseCategory matches case-insensitively. Empty input is Other.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryOther, true
	}
	for _, c := range Categories {
		if strings.EqualFold(raw, string(c)) {
			return c, true
		}
	}
	return "", false
}

type Status string

const (
	StatusSubmitted      Status = "submitted"
	StatusAnalyzed       Status = "analyzed"
	StatusInProgress     Status = "in_progress"
	StatusResolved       Status = "resolved"
	StatusAnalysisFailed Status = "analysis_failed"
)

var Statuses = []Status{StatusSubmitted, StatusAnalyzed, StatusInProgress, StatusResolved, StatusAnalysisFailed}

// ParseStatus accepts any known literal; the legacy "pending" reads as submitted.
func ParseStatus(raw string) (Status, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "pending" {
		return StatusSubmitted, true
	}
	for _, s := range Statuses {
		if raw == string(s) {
			return s, true
		}
	}
	return "", false
}

type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func ParsePriority(raw string) (Priority, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for _, p := range Priorities {
		if raw == string(p) {
			return p, true
		}
	}
	return "", false
}

// Color is the dashboard badge colour for a priority.
func (p Priority) Color() string {
	switch p {
	case PriorityCritical:
		return "#FF2D55"
	case PriorityHigh:
		return "#FF9500"
	case PriorityMedium:
		return "#007AFF"
	case PriorityLow:
		return "#34C759"
	default:
		return "#8E8E93"
	}
}

const AnonymousUser = "anonymous"

type Location struct {
	Lat float64 `firestore:"lat" json:"lat"`
	Lng float64 `firestore:"lng" json:"lng"`
}

type Media struct {
	URL  string `firestore:"url" json:"url"`
	Type string `firestore:"type" json:"type"`
}

type Complaint struct {
	ID               string     `firestore:"-" json:"id"`
	Description      string     `firestore:"description" json:"description"`
	Category         Category   `firestore:"category" json:"category"`
	CustomCategory   string     `firestore:"customCategory" json:"customCategory,omitempty"`
	Location         *Location  `firestore:"location" json:"location,omitempty"`
	UserID           string     `firestore:"userId" json:"userId"`
	Status           Status     `firestore:"status" json:"status"`
	Priority         Priority   `firestore:"priority" json:"priority"`
	AICategory       string     `firestore:"aiCategory,omitempty" json:"aiCategory,omitempty"`
	AIAnalysis       string     `firestore:"aiAnalysis,omitempty" json:"aiAnalysis,omitempty"`
	Media            []Media    `firestore:"media" json:"media"`
	MediaAnalysis    string     `firestore:"mediaAnalysis,omitempty" json:"mediaAnalysis,omitempty"`
	HasMediaAnalysis bool       `firestore:"hasMediaAnalysis" json:"hasMediaAnalysis"`
	CreatedAt        time.Time  `firestore:"createdAt" json:"createdAt"`
	AnalyzedAt       *time.Time `firestore:"analyzedAt" json:"analyzedAt,omitempty"`
	UpdatedAt        time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

// DisplayCategory is the free-text category when Other was chosen.
func (c *Complaint) DisplayCategory() string {
	if c.Category == CategoryOther && strings.TrimSpace(c.CustomCategory) != "" {
		return c.CustomCategory
	}
	return string(c.Category)
}

// Normalize repairs records written by older clients: "pending" statuses,
// missing categories and non-literal priorities.
func (c *Complaint) Normalize() {
	if s, ok := ParseStatus(string(c.Status)); ok {
		c.Status = s
	} else if c.Status == "" {
		c.Status = StatusSubmitted
	}
	if p, ok := ParsePriority(string(c.Priority)); ok {
		c.Priority = p
	} else {
		c.Priority = PriorityMedium
	}
	if cat, ok := ParseCategory(string(c.Category)); ok {
		c.Category = cat
	}
	if c.UserID == "" {
		c.UserID = AnonymousUser
	}
}

// Analysis is what the classification step writes back onto a complaint.
type Analysis struct {
	Status     Status    `json:"status"`
	Priority   Priority  `json:"priority,omitempty"`
	Category   Category  `json:"category,omitempty"`
	Text       string    `json:"analysis"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}
