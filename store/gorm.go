package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicvoice/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type complaintRow struct {
	ID               string         `gorm:"column:id;primaryKey;type:varchar(64)"`
	Description      string         `gorm:"column:description;type:text;not null"`
	Category         string         `gorm:"column:category;type:varchar(32);not null"`
	CustomCategory   string         `gorm:"column:custom_category;type:varchar(255)"`
	Lat              *float64       `gorm:"column:lat"`
	Lng              *float64       `gorm:"column:lng"`
	UserID           string         `gorm:"column:user_id;type:varchar(128);index"`
	Status           string         `gorm:"column:status;type:varchar(32);index"`
	Priority         string         `gorm:"column:priority;type:varchar(16)"`
	AICategory       string         `gorm:"column:ai_category;type:varchar(32)"`
	AIAnalysis       string         `gorm:"column:ai_analysis;type:text"`
	Media            datatypes.JSON `gorm:"column:media"`
	MediaAnalysis    string         `gorm:"column:media_analysis;type:text"`
	HasMediaAnalysis bool           `gorm:"column:has_media_analysis"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
	AnalyzedAt       *time.Time     `gorm:"column:analyzed_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
}

func (complaintRow) TableName() string {
	return "complaints"
}

type adminRow struct {
	ID           string         `gorm:"column:id;primaryKey;type:varchar(64)"`
	Email        string         `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string         `gorm:"column:password_hash;type:varchar(255);not null"`
	Name         string         `gorm:"column:name;type:varchar(255)"`
	Role         string         `gorm:"column:role;type:varchar(32)"`
	Status       string         `gorm:"column:status;type:varchar(32)"`
	Permissions  datatypes.JSON `gorm:"column:permissions"`
	LoginCount   int64          `gorm:"column:login_count;not null;default:0"`
	LastLogin    *time.Time     `gorm:"column:last_login"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
}

func (adminRow) TableName() string {
	return "admins"
}

type activityRow struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	AdminID   string    `gorm:"column:admin_id;type:varchar(64);index"`
	Action    string    `gorm:"column:action;type:varchar(64)"`
	Details   string    `gorm:"column:details;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (activityRow) TableName() string {
	return "admin_activity"
}

type contactRow struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	Name      string    `gorm:"column:name;type:varchar(255)"`
	Email     string    `gorm:"column:email;type:varchar(255)"`
	Subject   string    `gorm:"column:subject;type:varchar(255)"`
	Message   string    `gorm:"column:message;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (contactRow) TableName() string {
	return "contacts"
}

// GormStore is the relational alternative to Firestore for local and
// self-hosted deployments.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&complaintRow{}, &adminRow{}, &activityRow{}, &contactRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func toComplaintRow(c *model.Complaint) (complaintRow, error) {
	media, err := json.Marshal(c.Media)
	if err != nil {
		return complaintRow{}, err
	}
	row := complaintRow{
		ID:               c.ID,
		Description:      c.Description,
		Category:         string(c.Category),
		CustomCategory:   c.CustomCategory,
		UserID:           c.UserID,
		Status:           string(c.Status),
		Priority:         string(c.Priority),
		AICategory:       c.AICategory,
		AIAnalysis:       c.AIAnalysis,
		Media:            datatypes.JSON(media),
		MediaAnalysis:    c.MediaAnalysis,
		HasMediaAnalysis: c.HasMediaAnalysis,
		CreatedAt:        c.CreatedAt,
		AnalyzedAt:       c.AnalyzedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.Location != nil {
		row.Lat, row.Lng = &c.Location.Lat, &c.Location.Lng
	}
	return row, nil
}

func (r complaintRow) toModel() (model.Complaint, error) {
	c := model.Complaint{
		ID:               r.ID,
		Description:      r.Description,
		Category:         model.Category(r.Category),
		CustomCategory:   r.CustomCategory,
		UserID:           r.UserID,
		Status:           model.Status(r.Status),
		Priority:         model.Priority(r.Priority),
		AICategory:       r.AICategory,
		AIAnalysis:       r.AIAnalysis,
		MediaAnalysis:    r.MediaAnalysis,
		HasMediaAnalysis: r.HasMediaAnalysis,
		CreatedAt:        r.CreatedAt,
		AnalyzedAt:       r.AnalyzedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Lat != nil && r.Lng != nil {
		c.Location = &model.Location{Lat: *r.Lat, Lng: *r.Lng}
	}
	if len(r.Media) > 0 {
		if err := json.Unmarshal(r.Media, &c.Media); err != nil {
			return c, fmt.Errorf("decode media of %s: %w", r.ID, err)
		}
	}
	c.Normalize()
	return c, nil
}

func (s *GormStore) CreateComplaint(ctx context.Context, c *model.Complaint) (string, error) {
	c.ID = uuid.NewString()
	row, err := toComplaintRow(c)
	if err != nil {
		return "", fmt.Errorf("create complaint: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create complaint: %w", err)
	}
	return c.ID, nil
}

func (s *GormStore) GetComplaint(ctx context.Context, id string) (*model.Complaint, error) {
	var row complaintRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("get complaint %s: %w", id, gormNotFound(err))
	}
	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, error) {
	var rows []complaintRow
	q := s.db.WithContext(ctx)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	list := make([]model.Complaint, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return ApplyFilter(list, filter), nil
}

func (s *GormStore) updateComplaint(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = s.now().UTC()
	res := s.db.WithContext(ctx).Model(&complaintRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update complaint %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&complaintRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("update complaint %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("update complaint %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (s *GormStore) ApplyAnalysis(ctx context.Context, id string, a model.Analysis) error {
	at := a.AnalyzedAt.UTC()
	fields := map[string]interface{}{
		"status":      string(a.Status),
		"ai_analysis": a.Text,
		"analyzed_at": &at,
	}
	if a.Priority != "" {
		fields["priority"] = string(a.Priority)
	}
	if a.Category != "" {
		fields["ai_category"] = string(a.Category)
	}
	return s.updateComplaint(ctx, id, fields)
}

func (s *GormStore) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return s.updateComplaint(ctx, id, map[string]interface{}{"status": string(st)})
}

func (s *GormStore) SetMedia(ctx context.Context, id string, media []model.Media) error {
	if media == nil {
		media = []model.Media{}
	}
	raw, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}
	return s.updateComplaint(ctx, id, map[string]interface{}{"media": datatypes.JSON(raw)})
}

// AppendMedia reads and rewrites the media column inside one transaction,
// locking the row on drivers that support it.
func (s *GormStore) AppendMedia(ctx context.Context, id string, items []model.Media) ([]model.Media, error) {
	var out []model.Media
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&complaintRow{})
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row complaintRow
		if err := q.Where("id = ?", id).First(&row).Error; err != nil {
			return fmt.Errorf("append media %s: %w", id, gormNotFound(err))
		}
		var media []model.Media
		if len(row.Media) > 0 {
			if err := json.Unmarshal(row.Media, &media); err != nil {
				return fmt.Errorf("decode media %s: %w", id, err)
			}
		}
		media = append(media, items...)
		raw, err := json.Marshal(media)
		if err != nil {
			return fmt.Errorf("encode media: %w", err)
		}
		err = tx.Model(&complaintRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"media":      datatypes.JSON(raw),
			"updated_at": s.now().UTC(),
		}).Error
		if err != nil {
			return fmt.Errorf("append media %s: %w", id, err)
		}
		out = media
		return nil
	})
	return out, err
}

func (s *GormStore) SetMediaAnalysis(ctx context.Context, id string, text string) error {
	return s.updateComplaint(ctx, id, map[string]interface{}{
		"media_analysis":     text,
		"has_media_analysis": text != "",
	})
}

func (r adminRow) toModel() (*model.Admin, error) {
	a := &model.Admin{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Role:         r.Role,
		Status:       r.Status,
		LoginCount:   r.LoginCount,
		LastLogin:    r.LastLogin,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Permissions) > 0 {
		if err := json.Unmarshal(r.Permissions, &a.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions of %s: %w", r.ID, err)
		}
	}
	return a, nil
}

func (s *GormStore) CreateAdmin(ctx context.Context, a *model.Admin) (string, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if _, err := s.GetAdminByEmail(ctx, a.Email); err == nil {
		return "", fmt.Errorf("create admin %s: %w", a.Email, ErrDuplicate)
	} else if !isNotFound(err) {
		return "", err
	}
	perms, err := json.Marshal(a.Permissions)
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	a.ID = uuid.NewString()
	row := adminRow{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Name:         a.Name,
		Role:         a.Role,
		Status:       a.Status,
		Permissions:  datatypes.JSON(perms),
		LoginCount:   a.LoginCount,
		LastLogin:    a.LastLogin,
		CreatedAt:    a.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create admin: %w", err)
	}
	return a.ID, nil
}

func (s *GormStore) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	var row adminRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("get admin %s: %w", id, gormNotFound(err))
	}
	return row.toModel()
}

func (s *GormStore) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var row adminRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, fmt.Errorf("find admin %s: %w", email, gormNotFound(err))
	}
	return row.toModel()
}

func (s *GormStore) CountAdmins(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&adminRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return int(n), nil
}

func (s *GormStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&adminRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"login_count": gorm.Expr("login_count + ?", 1),
		"last_login":  &at,
	})
	if res.Error != nil {
		return fmt.Errorf("record login %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("record login %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *GormStore) AppendActivity(ctx context.Context, a *model.AdminActivity) (string, error) {
	a.ID = uuid.NewString()
	row := activityRow{ID: a.ID, AdminID: a.AdminID, Action: a.Action, Details: a.Details, CreatedAt: a.CreatedAt}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("append activity: %w", err)
	}
	return a.ID, nil
}

func (s *GormStore) ListActivity(ctx context.Context, adminID string, limit int) ([]model.AdminActivity, error) {
	var rows []activityRow
	q := s.db.WithContext(ctx).Order("created_at desc")
	if adminID != "" {
		q = q.Where("admin_id = ?", adminID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]model.AdminActivity, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AdminActivity{ID: r.ID, AdminID: r.AdminID, Action: r.Action, Details: r.Details, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (s *GormStore) CreateContact(ctx context.Context, m *model.ContactMessage) (string, error) {
	m.ID = uuid.NewString()
	row := contactRow{ID: m.ID, Name: m.Name, Email: m.Email, Subject: m.Subject, Message: m.Message, CreatedAt: m.CreatedAt}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return m.ID, nil
}

func (s *GormStore) ListContacts(ctx context.Context, limit int) ([]model.ContactMessage, error) {
	var rows []contactRow
	q := s.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	out := make([]model.ContactMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ContactMessage{ID: r.ID, Name: r.Name, Email: r.Email, Subject: r.Subject, Message: r.Message, CreatedAt: r.CreatedAt})
	}
	return out, nil
}
