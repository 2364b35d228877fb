package user

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/password"
)

type Service interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, userID uint64) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID uint64, password string) (*domain.User, error)
	Courses(ctx context.Context, userID uint64) ([]domain.EnrolledCourse, error)
	CourseProgress(ctx context.Context, userID, courseID uint64) (*domain.CourseProgress, error)
}

type userStore interface {
	Get(ctx context.Context, id uint64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

type courseStore interface {
	ListEnrolled(ctx context.Context, userID uint64) ([]domain.EnrolledCourse, error)
	Progress(ctx context.Context, userID, courseID uint64) (*domain.CourseProgress, error)
}

type service struct {
	repo     userStore
	courses  courseStore
	hashCost int
}

type ServiceDeps struct {
	UserRepo   userStore
	CourseRepo courseStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.UserRepo,
		courses:  deps.CourseRepo,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *service) Get(ctx context.Context, userID uint64) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdatePassword(ctx context.Context, userID uint64, pw string) (*domain.User, error) {
	if pw == "" {
		return nil, fmt.Errorf("password required: %w", domain.ErrBadRequest)
	}
	hash, err := password.Hash([]byte(pw), s.hashCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) Courses(ctx context.Context, userID uint64) ([]domain.EnrolledCourse, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return nil, err
	}
	courses, err := s.courses.ListEnrolled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []domain.EnrolledCourse{}
	}
	return courses, nil
}

func (s *service) CourseProgress(ctx context.Context, userID, courseID uint64) (*domain.CourseProgress, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.courses.Progress(ctx, userID, courseID)
}
