package store

import (
	"testing"
	"time"

	"civicvoice/model"

	"github.com/stretchr/testify/assert"
)

func TestApplyFilter(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []model.Complaint{
		{ID: "a", UserID: "u1", Status: model.StatusSubmitted, Priority: model.PriorityLow, CreatedAt: base},
		{ID: "b", UserID: "u2", Status: model.StatusAnalyzed, Priority: model.PriorityHigh, CreatedAt: base.Add(time.Hour)},
		{ID: "c", UserID: "u1", Status: model.StatusAnalyzed, Priority: model.PriorityCritical, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", UserID: "u1", Status: model.StatusResolved, Priority: model.PriorityMedium, CreatedAt: base.Add(-time.Hour)},
	}

	ids := func(cs []model.Complaint) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	t.Run("newest first", func(t *testing.T) {
		assert.Equal(t, []string{"c", "b", "a", "d"}, ids(ApplyFilter(list, ComplaintFilter{})))
	})

	t.Run("by user", func(t *testing.T) {
		assert.Equal(t, []string{"c", "a", "d"}, ids(ApplyFilter(list, ComplaintFilter{UserID: "u1"})))
	})

	t.Run("by status and priority", func(t *testing.T) {
		got := ApplyFilter(list, ComplaintFilter{
			Statuses:   []model.Status{model.StatusAnalyzed},
			Priorities: []model.Priority{model.PriorityHigh, model.PriorityCritical},
		})
		assert.Equal(t, []string{"c", "b"}, ids(got))
	})

	t.Run("created before", func(t *testing.T) {
		got := ApplyFilter(list, ComplaintFilter{CreatedBefore: base.Add(30 * time.Minute)})
		assert.Equal(t, []string{"a", "d"}, ids(got))
	})

	t.Run("limit", func(t *testing.T) {
		assert.Equal(t, []string{"c", "b"}, ids(ApplyFilter(list, ComplaintFilter{Limit: 2})))
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.Equal(t, "a", list[0].ID)
	})
}
