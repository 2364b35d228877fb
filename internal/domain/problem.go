package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	TemplateMultipleChoice = "multiple-choice"
	TemplateCoding         = "coding"
	TemplateEssay          = "essay"
	TemplateFillBlank      = "fill-blank"
)

// Problem is a quiz item. Options, TestCases and Blanks are stored as raw
// JSON because their shape depends on Template.
type Problem struct {
	ID             uint64                      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title          string                      `json:"title" gorm:"size:255;not null"`
	Difficulty     string                      `json:"difficulty" gorm:"size:20;index;not null"`
	Category       string                      `json:"category" gorm:"size:100;index"`
	Tags           datatypes.JSONSlice[string] `json:"tags" gorm:"type:json"`
	Template       string                      `json:"template" gorm:"size:30;not null"`
	Content        string                      `json:"content" gorm:"type:text"`
	Options        datatypes.JSON              `json:"options,omitempty" gorm:"type:json"`
	CorrectAnswer  *string                     `json:"correct_answer,omitempty" gorm:"type:text"`
	Explanation    *string                     `json:"explanation,omitempty" gorm:"type:text"`
	SampleCode     *string                     `json:"sample_code,omitempty" gorm:"type:text"`
	TestCases      datatypes.JSON              `json:"test_cases,omitempty" gorm:"type:json"`
	ExpectedLength *int                        `json:"expected_length,omitempty"`
	Blanks         datatypes.JSON              `json:"blanks,omitempty" gorm:"type:json"`
	PassRate       float64                     `json:"pass_rate"`
	CreatedAt      time.Time                   `json:"created_at"`
}

type ProblemFilter struct {
	Difficulty string
	Category   string
	// Tags match when the problem carries any of them.
	Tags []string
}

// ProblemStatus is one user's completion and bookmark state for a problem.
type ProblemStatus struct {
	UserID      uint64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	ProblemID   uint64     `json:"problem_id" gorm:"primaryKey;autoIncrement:false"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	Bookmarked  bool       `json:"bookmarked" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ProblemStatus) TableName() string { return "user_problems" }

type ProblemWithStatus struct {
	Problem
	Completed   bool       `json:"completed"`
	Bookmarked  bool       `json:"bookmarked"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type UpdateProblemStatusRequest struct {
	UserID     *uint64 `json:"user_id"`
	Completed  *bool   `json:"completed"`
	Bookmarked *bool   `json:"bookmarked"`
}
