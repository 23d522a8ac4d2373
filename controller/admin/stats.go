package admin

import (
	"net/http"

	"civicvoice/controller"
	"civicvoice/model"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
)

type priorityCount struct {
	Priority model.Priority `json:"priority"`
	Count    int            `json:"count"`
	Color    string         `json:"color"`
}

type categoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type DashboardStats struct {
	Total        int                  `json:"total"`
	Pending      int                  `json:"pending"`
	HighPriority int                  `json:"highPriority"`
	Resolved     int                  `json:"resolved"`
	ByStatus     map[model.Status]int `json:"byStatus"`
	ByPriority   []priorityCount      `json:"byPriority"`
	ByCategory   []categoryCount      `json:"byCategory"`
	Recent       []model.Complaint    `json:"recent"`
}

// Summarize counts complaints the way the dashboard cards group them.
func Summarize(list []model.Complaint) DashboardStats {
	s := DashboardStats{Total: len(list), ByStatus: make(map[model.Status]int, len(model.Statuses))}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}
	byPriority := make(map[model.Priority]int)
	byCategory := make(map[model.Category]int)

	for _, c := range list {
		s.ByStatus[c.Status]++
		byPriority[c.Priority]++
		byCategory[c.Category]++
		switch c.Status {
		case model.StatusSubmitted, model.StatusAnalyzed:
			s.Pending++
		case model.StatusResolved:
			s.Resolved++
		}
		if c.Priority == model.PriorityHigh || c.Priority == model.PriorityCritical {
			s.HighPriority++
		}
	}

	for _, p := range model.Priorities {
		s.ByPriority = append(s.ByPriority, priorityCount{Priority: p, Count: byPriority[p], Color: p.Color()})
	}
	for _, cat := range model.Categories {
		s.ByCategory = append(s.ByCategory, categoryCount{Category: string(cat), Count: byCategory[cat]})
	}

	recent := store.ApplyFilter(list, store.ComplaintFilter{Limit: 5})
	s.Recent = recent
	return s
}

func Stats(c *gin.Context, d *controller.Deps) {
	list, err := d.Store.ListComplaints(c, store.ComplaintFilter{})
	if err != nil {
		d.Log.Error("stats list complaints failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": Summarize(list)})
}
