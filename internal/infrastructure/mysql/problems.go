package mysql

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quizhub/quiz-api/internal/domain"
)

// ProblemRepo provides typed operations on problems and user_problems.
type ProblemRepo struct {
	db *gorm.DB
}

func NewProblemRepo(db *gorm.DB) *ProblemRepo {
	return &ProblemRepo{db: db}
}

// List returns problems matching every non-empty filter field, ordered by
// id. A problem matches Tags when it carries at least one of them.
func (r *ProblemRepo) List(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error) {
	q := r.db.WithContext(ctx).Model(&domain.Problem{})
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if len(f.Tags) > 0 {
		group := r.db.Where(datatypes.JSONArrayQuery("tags").Contains(f.Tags[0]))
		for _, tag := range f.Tags[1:] {
			group = group.Or(datatypes.JSONArrayQuery("tags").Contains(tag))
		}
		q = q.Where(group)
	}
	var out []domain.Problem
	err := q.Order("id").Find(&out).Error
	return out, translate(err, "list problems")
}

func (r *ProblemRepo) Get(ctx context.Context, id uint64) (*domain.Problem, error) {
	var p domain.Problem
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "get problem")
	}
	return &p, nil
}

func (r *ProblemRepo) Create(ctx context.Context, p *domain.Problem) error {
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return translate(r.db.WithContext(ctx).Create(p).Error, "create problem")
}

// UpsertStatus inserts or updates one user's status row. Nil fields keep
// their stored value. Marking a problem completed stamps completed_at.
func (r *ProblemRepo) UpsertStatus(ctx context.Context, userID, problemID uint64, completed, bookmarked *bool) error {
	now := time.Now().UTC()
	row := domain.ProblemStatus{UserID: userID, ProblemID: problemID, UpdatedAt: now}
	set := map[string]interface{}{"updated_at": now}
	if completed != nil {
		row.Completed = *completed
		set["completed"] = *completed
		if *completed {
			row.CompletedAt = &now
			set["completed_at"] = now
		}
	}
	if bookmarked != nil {
		row.Bookmarked = *bookmarked
		set["bookmarked"] = *bookmarked
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "problem_id"}},
		DoUpdates: clause.Assignments(set),
	}).Create(&row).Error
	return translate(err, "upsert problem status")
}

func (r *ProblemRepo) GetStatus(ctx context.Context, userID, problemID uint64) (*domain.ProblemStatus, error) {
	var s domain.ProblemStatus
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND problem_id = ?", userID, problemID).
		Take(&s).Error
	if err != nil {
		return nil, translate(err, "get problem status")
	}
	return &s, nil
}

// GetWithStatus returns the problem joined with userID's status. A
// missing status row reads as not completed and not bookmarked.
func (r *ProblemRepo) GetWithStatus(ctx context.Context, userID, problemID uint64) (*domain.ProblemWithStatus, error) {
	var out domain.ProblemWithStatus
	err := r.db.WithContext(ctx).
		Table("problems AS p").
		Select("p.*, COALESCE(up.completed, 0) AS completed, COALESCE(up.bookmarked, 0) AS bookmarked, up.completed_at AS completed_at").
		Joins("LEFT JOIN user_problems up ON up.problem_id = p.id AND up.user_id = ?", userID).
		Where("p.id = ?", problemID).
		Take(&out).Error
	if err != nil {
		return nil, translate(err, "get problem with status")
	}
	return &out, nil
}

// ListCompleted returns the problems userID has completed, most recent first.
func (r *ProblemRepo) ListCompleted(ctx context.Context, userID uint64) ([]domain.Problem, error) {
	var out []domain.Problem
	err := r.db.WithContext(ctx).
		Table("problems AS p").
		Select("p.*").
		Joins("JOIN user_problems up ON up.problem_id = p.id").
		Where("up.user_id = ? AND up.completed = ?", userID, true).
		Order("up.completed_at DESC").
		Find(&out).Error
	return out, translate(err, "list completed problems")
}

func (r *ProblemRepo) ListBookmarked(ctx context.Context, userID uint64) ([]domain.Problem, error) {
	var out []domain.Problem
	err := r.db.WithContext(ctx).
		Table("problems AS p").
		Select("p.*").
		Joins("JOIN user_problems up ON up.problem_id = p.id").
		Where("up.user_id = ? AND up.bookmarked = ?", userID, true).
		Order("p.id").
		Find(&out).Error
	return out, translate(err, "list bookmarked problems")
}
