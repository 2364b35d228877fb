package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/quizhub/quiz-api/internal/domain"
)

type CourseRepo struct {
	db *gorm.DB
}

func NewCourseRepo(db *gorm.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// ListEnrolled returns the courses userID has started, most recent first.
func (r *CourseRepo) ListEnrolled(ctx context.Context, userID uint64) ([]domain.EnrolledCourse, error) {
	var out []domain.EnrolledCourse
	err := r.db.WithContext(ctx).
		Table("courses AS c").
		Select("c.*, uc.progress, uc.started_at, uc.completed_at").
		Joins("JOIN user_courses uc ON uc.course_id = c.id").
		Where("uc.user_id = ?", userID).
		Order("uc.started_at DESC").
		Find(&out).Error
	return out, translate(err, "list enrolled courses")
}

// Progress returns the course contents in order with userID's completion
// state. Without an enrollment row the summary progress is zero.
func (r *CourseRepo) Progress(ctx context.Context, userID, courseID uint64) (*domain.CourseProgress, error) {
	out := &domain.CourseProgress{Contents: []domain.ContentProgress{}}
	err := r.db.WithContext(ctx).
		Table("course_contents AS cc").
		Select("cc.*, COALESCE(ucp.completed, 0) AS completed, ucp.completed_at AS completed_at").
		Joins("LEFT JOIN user_content_progress ucp ON ucp.content_id = cc.id AND ucp.user_id = ?", userID).
		Where("cc.course_id = ?", courseID).
		Order("cc.order_index").
		Find(&out.Contents).Error
	if err != nil {
		return nil, translate(err, "list course contents")
	}

	var uc domain.UserCourse
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).Find(&uc)
	if res.Error != nil {
		return nil, translate(res.Error, "get course progress")
	}
	if res.RowsAffected > 0 {
		started := uc.StartedAt
		out.Progress = domain.CourseProgressSummary{
			Progress:    uc.Progress,
			StartedAt:   &started,
			CompletedAt: uc.CompletedAt,
		}
	}
	return out, nil
}
