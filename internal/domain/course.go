package domain

import "time"

type Course struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserCourse struct {
	UserID      uint64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	CourseID    uint64     `json:"course_id" gorm:"primaryKey;autoIncrement:false"`
	Progress    int        `json:"progress" gorm:"not null;default:0"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CourseContent struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	CourseID    uint64 `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title" gorm:"size:255;not null"`
	ContentType string `json:"content_type" gorm:"size:30"`
	OrderIndex  int    `json:"order_index" gorm:"not null;default:0"`
}

type UserContentProgress struct {
	UserID      uint64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	ContentID   uint64     `json:"content_id" gorm:"primaryKey;autoIncrement:false"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (UserContentProgress) TableName() string { return "user_content_progress" }

// EnrolledCourse is a course joined with one user's enrollment row.
type EnrolledCourse struct {
	Course
	Progress    int        `json:"progress"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ContentProgress struct {
	CourseContent
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CourseProgressSummary struct {
	Progress    int        `json:"progress"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CourseProgress struct {
	Contents []ContentProgress     `json:"contents"`
	Progress CourseProgressSummary `json:"progress"`
}
