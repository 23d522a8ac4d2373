package services

import (
	"context"
	"time"

	"civicvoice/model"
	"civicvoice/store"

	"github.com/stretchr/testify/mock"
)

type MockComplaintStore struct {
	mock.Mock
}

func (m *MockComplaintStore) CreateComplaint(ctx context.Context, c *model.Complaint) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (m *MockComplaintStore) GetComplaint(ctx context.Context, id string) (*model.Complaint, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Complaint)
	return c, args.Error(1)
}

func (m *MockComplaintStore) ListComplaints(ctx context.Context, f store.ComplaintFilter) ([]model.Complaint, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.Complaint)
	return list, args.Error(1)
}

func (m *MockComplaintStore) ApplyAnalysis(ctx context.Context, id string, a model.Analysis) error {
	args := m.Called(ctx, id, a)
	return args.Error(0)
}

func (m *MockComplaintStore) UpdateStatus(ctx context.Context, id string, s model.Status) error {
	args := m.Called(ctx, id, s)
	return args.Error(0)
}

func (m *MockComplaintStore) SetMedia(ctx context.Context, id string, media []model.Media) error {
	args := m.Called(ctx, id, media)
	return args.Error(0)
}

func (m *MockComplaintStore) AppendMedia(ctx context.Context, id string, items []model.Media) ([]model.Media, error) {
	args := m.Called(ctx, id, items)
	list, _ := args.Get(0).([]model.Media)
	return list, args.Error(1)
}

func (m *MockComplaintStore) SetMediaAnalysis(ctx context.Context, id string, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev model.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyCritical(ctx context.Context, c CriticalComplaint) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
