package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"civicvoice/model"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	complaintsCollection = "complaints"
	adminsCollection     = "admins"
	activityCollection   = "adminActivity"
	contactsCollection   = "contacts"
)

type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client, now: time.Now}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func notFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) CreateComplaint(ctx context.Context, c *model.Complaint) (string, error) {
	ref, _, err := s.client.Collection(complaintsCollection).Add(ctx, c)
	if err != nil {
		return "", fmt.Errorf("create complaint: %w", err)
	}
	c.ID = ref.ID
	return ref.ID, nil
}

func (s *FirestoreStore) GetComplaint(ctx context.Context, id string) (*model.Complaint, error) {
	snap, err := s.client.Collection(complaintsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get complaint %s: %w", id, notFound(err))
	}
	var c model.Complaint
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decode complaint %s: %w", id, err)
	}
	c.ID = snap.Ref.ID
	c.Normalize()
	return &c, nil
}

// ListComplaints only pushes the single-field userId equality to Firestore.
func (s *FirestoreStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, error) {
	q := s.client.Collection(complaintsCollection).Query
	if filter.UserID != "" {
		q = q.Where("userId", "==", filter.UserID)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	list := make([]model.Complaint, 0, len(docs))
	for _, doc := range docs {
		var c model.Complaint
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("decode complaint %s: %w", doc.Ref.ID, err)
		}
		c.ID = doc.Ref.ID
		c.Normalize()
		list = append(list, c)
	}
	return ApplyFilter(list, filter), nil
}

func (s *FirestoreStore) updateComplaint(ctx context.Context, id string, updates []firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: s.now().UTC()})
	if _, err := s.client.Collection(complaintsCollection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("update complaint %s: %w", id, notFound(err))
	}
	return nil
}

func (s *FirestoreStore) ApplyAnalysis(ctx context.Context, id string, a model.Analysis) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(a.Status)},
		{Path: "aiAnalysis", Value: a.Text},
		{Path: "analyzedAt", Value: a.AnalyzedAt.UTC()},
	}
	if a.Priority != "" {
		updates = append(updates, firestore.Update{Path: "priority", Value: string(a.Priority)})
	}
	if a.Category != "" {
		updates = append(updates, firestore.Update{Path: "aiCategory", Value: string(a.Category)})
	}
	return s.updateComplaint(ctx, id, updates)
}

func (s *FirestoreStore) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return s.updateComplaint(ctx, id, []firestore.Update{{Path: "status", Value: string(st)}})
}

func (s *FirestoreStore) SetMedia(ctx context.Context, id string, media []model.Media) error {
	if media == nil {
		media = []model.Media{}
	}
	return s.updateComplaint(ctx, id, []firestore.Update{{Path: "media", Value: media}})
}

func (s *FirestoreStore) AppendMedia(ctx context.Context, id string, items []model.Media) ([]model.Media, error) {
	vals := make([]interface{}, 0, len(items))
	for _, m := range items {
		vals = append(vals, m)
	}
	if err := s.updateComplaint(ctx, id, []firestore.Update{{Path: "media", Value: firestore.ArrayUnion(vals...)}}); err != nil {
		return nil, err
	}
	c, err := s.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Media, nil
}

func (s *FirestoreStore) SetMediaAnalysis(ctx context.Context, id string, text string) error {
	return s.updateComplaint(ctx, id, []firestore.Update{
		{Path: "mediaAnalysis", Value: text},
		{Path: "hasMediaAnalysis", Value: text != ""},
	})
}

func (s *FirestoreStore) CreateAdmin(ctx context.Context, a *model.Admin) (string, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if _, err := s.GetAdminByEmail(ctx, a.Email); err == nil {
		return "", fmt.Errorf("create admin %s: %w", a.Email, ErrDuplicate)
	} else if !isNotFound(err) {
		return "", err
	}
	ref, _, err := s.client.Collection(adminsCollection).Add(ctx, a)
	if err != nil {
		return "", fmt.Errorf("create admin: %w", err)
	}
	a.ID = ref.ID
	return ref.ID, nil
}

func (s *FirestoreStore) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	snap, err := s.client.Collection(adminsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get admin %s: %w", id, notFound(err))
	}
	var a model.Admin
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decode admin %s: %w", id, err)
	}
	a.ID = snap.Ref.ID
	return &a, nil
}

func (s *FirestoreStore) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	docs, err := s.client.Collection(adminsCollection).Where("email", "==", email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("find admin %s: %w", email, ErrNotFound)
	}
	var a model.Admin
	if err := docs[0].DataTo(&a); err != nil {
		return nil, fmt.Errorf("decode admin: %w", err)
	}
	a.ID = docs[0].Ref.ID
	return &a, nil
}

func (s *FirestoreStore) CountAdmins(ctx context.Context) (int, error) {
	docs, err := s.client.Collection(adminsCollection).Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return len(docs), nil
}

func (s *FirestoreStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.client.Collection(adminsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "loginCount", Value: firestore.Increment(1)},
		{Path: "lastLogin", Value: at.UTC()},
	})
	if err != nil {
		return fmt.Errorf("record login %s: %w", id, notFound(err))
	}
	return nil
}

func (s *FirestoreStore) AppendActivity(ctx context.Context, a *model.AdminActivity) (string, error) {
	ref, _, err := s.client.Collection(activityCollection).Add(ctx, a)
	if err != nil {
		return "", fmt.Errorf("append activity: %w", err)
	}
	a.ID = ref.ID
	return ref.ID, nil
}

func (s *FirestoreStore) ListActivity(ctx context.Context, adminID string, limit int) ([]model.AdminActivity, error) {
	q := s.client.Collection(activityCollection).Query
	if adminID != "" {
		q = q.Where("adminId", "==", adminID)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]model.AdminActivity, 0, len(docs))
	for _, doc := range docs {
		var a model.AdminActivity
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decode activity %s: %w", doc.Ref.ID, err)
		}
		a.ID = doc.Ref.ID
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FirestoreStore) CreateContact(ctx context.Context, m *model.ContactMessage) (string, error) {
	ref, _, err := s.client.Collection(contactsCollection).Add(ctx, m)
	if err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	m.ID = ref.ID
	return ref.ID, nil
}

func (s *FirestoreStore) ListContacts(ctx context.Context, limit int) ([]model.ContactMessage, error) {
	docs, err := s.client.Collection(contactsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	out := make([]model.ContactMessage, 0, len(docs))
	for _, doc := range docs {
		var m model.ContactMessage
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decode contact %s: %w", doc.Ref.ID, err)
		}
		m.ID = doc.Ref.ID
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
