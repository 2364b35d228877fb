package problem

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quizhub/quiz-api/internal/domain"
)

type mockProblemStore struct{ mock.Mock }

func (m *mockProblemStore) List(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error) {
	args := m.Called(ctx, f)
	ps, _ := args.Get(0).([]domain.Problem)
	return ps, args.Error(1)
}
func (m *mockProblemStore) Get(ctx context.Context, id uint64) (*domain.Problem, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Problem)
	return p, args.Error(1)
}
func (m *mockProblemStore) UpsertStatus(ctx context.Context, userID, problemID uint64, completed, bookmarked *bool) error {
	return m.Called(ctx, userID, problemID, completed, bookmarked).Error(0)
}
func (m *mockProblemStore) GetStatus(ctx context.Context, userID, problemID uint64) (*domain.ProblemStatus, error) {
	args := m.Called(ctx, userID, problemID)
	st, _ := args.Get(0).(*domain.ProblemStatus)
	return st, args.Error(1)
}
func (m *mockProblemStore) GetWithStatus(ctx context.Context, userID, problemID uint64) (*domain.ProblemWithStatus, error) {
	args := m.Called(ctx, userID, problemID)
	p, _ := args.Get(0).(*domain.ProblemWithStatus)
	return p, args.Error(1)
}
func (m *mockProblemStore) ListCompleted(ctx context.Context, userID uint64) ([]domain.Problem, error) {
	args := m.Called(ctx, userID)
	ps, _ := args.Get(0).([]domain.Problem)
	return ps, args.Error(1)
}
func (m *mockProblemStore) ListBookmarked(ctx context.Context, userID uint64) ([]domain.Problem, error) {
	args := m.Called(ctx, userID)
	ps, _ := args.Get(0).([]domain.Problem)
	return ps, args.Error(1)
}

func boolPtr(b bool) *bool { return &b }

func TestList_PassesFilter(t *testing.T) {
	repo := &mockProblemStore{}
	f := domain.ProblemFilter{Difficulty: "easy", Tags: []string{"array"}}
	repo.On("List", mock.Anything, f).Return([]domain.Problem{{ID: 1}}, nil)

	out, err := NewService(repo).List(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	repo := &mockProblemStore{}
	repo.On("List", mock.Anything, domain.ProblemFilter{}).Return(nil, nil)

	out, err := NewService(repo).List(context.Background(), domain.ProblemFilter{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestUpdateStatus_ProblemMissing(t *testing.T) {
	repo := &mockProblemStore{}
	repo.On("Get", mock.Anything, uint64(99)).Return(nil, domain.ErrNotFound)

	_, err := NewService(repo).UpdateStatus(context.Background(), 1, 99, domain.UpdateProblemStatusRequest{Completed: boolPtr(true)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "UpsertStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_OnlyProvidedFields(t *testing.T) {
	repo := &mockProblemStore{}
	bookmarked := boolPtr(true)
	repo.On("Get", mock.Anything, uint64(3)).Return(&domain.Problem{ID: 3}, nil)
	repo.On("UpsertStatus", mock.Anything, uint64(1), uint64(3), (*bool)(nil), bookmarked).Return(nil)
	want := &domain.ProblemWithStatus{Problem: domain.Problem{ID: 3}, Bookmarked: true}
	repo.On("GetWithStatus", mock.Anything, uint64(1), uint64(3)).Return(want, nil)

	got, err := NewService(repo).UpdateStatus(context.Background(), 1, 3, domain.UpdateProblemStatusRequest{Bookmarked: bookmarked})
	require.NoError(t, err)
	assert.Same(t, want, got)
	repo.AssertExpectations(t)
}

func TestUpdateStatus_UpsertError(t *testing.T) {
	repo := &mockProblemStore{}
	repo.On("Get", mock.Anything, uint64(3)).Return(&domain.Problem{ID: 3}, nil)
	repo.On("UpsertStatus", mock.Anything, uint64(1), uint64(3), mock.Anything, mock.Anything).Return(errors.New("deadlock"))

	_, err := NewService(repo).UpdateStatus(context.Background(), 1, 3, domain.UpdateProblemStatusRequest{Completed: boolPtr(true)})
	assert.ErrorContains(t, err, "deadlock")
	repo.AssertNotCalled(t, "GetWithStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus_DefaultsWhenMissing(t *testing.T) {
	repo := &mockProblemStore{}
	repo.On("GetStatus", mock.Anything, uint64(1), uint64(3)).Return(nil, domain.ErrNotFound)

	st, err := NewService(repo).Status(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, st.Completed)
	assert.False(t, st.Bookmarked)
	assert.Nil(t, st.CompletedAt)
}

func TestStatus_PropagatesOtherErrors(t *testing.T) {
	repo := &mockProblemStore{}
	repo.On("GetStatus", mock.Anything, uint64(1), uint64(3)).Return(nil, errors.New("db down"))

	_, err := NewService(repo).Status(context.Background(), 1, 3)
	assert.ErrorContains(t, err, "db down")
}

func TestCompletedAndBookmarked(t *testing.T) {
	repo := &mockProblemStore{}
	repo.On("ListCompleted", mock.Anything, uint64(1)).Return([]domain.Problem{{ID: 2}, {ID: 1}}, nil)
	repo.On("ListBookmarked", mock.Anything, uint64(1)).Return(nil, nil)
	svc := NewService(repo)

	done, err := svc.Completed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), done[0].ID)

	marked, err := svc.Bookmarked(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, marked)
	assert.NotNil(t, marked)
}
