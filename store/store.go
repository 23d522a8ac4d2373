// Package store persists complaints, admins, admin activity and contact
// messages. Reads return everything (or one user's records) and filter and
// sort in memory, so the backing database never needs a composite index.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"civicvoice/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *model.Complaint) (string, error)
	GetComplaint(ctx context.Context, id string) (*model.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, error)
	ApplyAnalysis(ctx context.Context, id string, a model.Analysis) error
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	SetMedia(ctx context.Context, id string, media []model.Media) error
	// AppendMedia adds items to the media list atomically and returns the
	// resulting list.
	AppendMedia(ctx context.Context, id string, items []model.Media) ([]model.Media, error)
	SetMediaAnalysis(ctx context.Context, id string, text string) error
}

type AdminStore interface {
	CreateAdmin(ctx context.Context, a *model.Admin) (string, error)
	GetAdmin(ctx context.Context, id string) (*model.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	CountAdmins(ctx context.Context) (int, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

type ActivityStore interface {
	AppendActivity(ctx context.Context, a *model.AdminActivity) (string, error)
	ListActivity(ctx context.Context, adminID string, limit int) ([]model.AdminActivity, error)
}

type ContactStore interface {
	CreateContact(ctx context.Context, m *model.ContactMessage) (string, error)
	ListContacts(ctx context.Context, limit int) ([]model.ContactMessage, error)
}

type Store interface {
	ComplaintStore
	AdminStore
	ActivityStore
	ContactStore
	Close() error
}

type ComplaintFilter struct {
	UserID        string
	Statuses      []model.Status
	Priorities    []model.Priority
	CreatedBefore time.Time
	Limit         int
}

// ApplyFilter keeps the complaints matching f, newest first.
func ApplyFilter(list []model.Complaint, f ComplaintFilter) []model.Complaint {
	out := make([]model.Complaint, 0, len(list))
	for _, c := range list {
		if f.UserID != "" && c.UserID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !containsPriority(f.Priorities, c.Priority) {
			continue
		}
		if !f.CreatedBefore.IsZero() && !c.CreatedAt.Before(f.CreatedBefore) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func containsStatus(list []model.Status, s model.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []model.Priority, p model.Priority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
