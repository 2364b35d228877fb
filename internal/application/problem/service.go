package problem

import (
	"context"
	"errors"

	"github.com/quizhub/quiz-api/internal/domain"
)

type Service interface {
	List(ctx context.Context, filter domain.ProblemFilter) ([]domain.Problem, error)
	Get(ctx context.Context, problemID uint64) (*domain.Problem, error)
	UpdateStatus(ctx context.Context, userID, problemID uint64, req domain.UpdateProblemStatusRequest) (*domain.ProblemWithStatus, error)
	Status(ctx context.Context, userID, problemID uint64) (*domain.ProblemStatus, error)
	Completed(ctx context.Context, userID uint64) ([]domain.Problem, error)
	Bookmarked(ctx context.Context, userID uint64) ([]domain.Problem, error)
}

type problemStore interface {
	List(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error)
	Get(ctx context.Context, id uint64) (*domain.Problem, error)
	UpsertStatus(ctx context.Context, userID, problemID uint64, completed, bookmarked *bool) error
	GetStatus(ctx context.Context, userID, problemID uint64) (*domain.ProblemStatus, error)
	GetWithStatus(ctx context.Context, userID, problemID uint64) (*domain.ProblemWithStatus, error)
	ListCompleted(ctx context.Context, userID uint64) ([]domain.Problem, error)
	ListBookmarked(ctx context.Context, userID uint64) ([]domain.Problem, error)
}

type service struct {
	repo problemStore
}

func NewService(repo problemStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, filter domain.ProblemFilter) ([]domain.Problem, error) {
	return nonNil(s.repo.List(ctx, filter))
}

func (s *service) Get(ctx context.Context, problemID uint64) (*domain.Problem, error) {
	return s.repo.Get(ctx, problemID)
}

// UpdateStatus writes only the fields present in req.
func (s *service) UpdateStatus(ctx context.Context, userID, problemID uint64, req domain.UpdateProblemStatusRequest) (*domain.ProblemWithStatus, error) {
	if _, err := s.repo.Get(ctx, problemID); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertStatus(ctx, userID, problemID, req.Completed, req.Bookmarked); err != nil {
		return nil, err
	}
	return s.repo.GetWithStatus(ctx, userID, problemID)
}

// Status returns the stored row, or an unset status when the user never
// touched the problem.
func (s *service) Status(ctx context.Context, userID, problemID uint64) (*domain.ProblemStatus, error) {
	st, err := s.repo.GetStatus(ctx, userID, problemID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ProblemStatus{UserID: userID, ProblemID: problemID}, nil
	}
	return st, err
}

func (s *service) Completed(ctx context.Context, userID uint64) ([]domain.Problem, error) {
	return nonNil(s.repo.ListCompleted(ctx, userID))
}

func (s *service) Bookmarked(ctx context.Context, userID uint64) ([]domain.Problem, error) {
	return nonNil(s.repo.ListBookmarked(ctx, userID))
}

func nonNil(ps []domain.Problem, err error) ([]domain.Problem, error) {
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []domain.Problem{}
	}
	return ps, nil
}
