package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quizhub/quiz-api/internal/domain"
)

// newTestDB opens a private in-memory sqlite database with the schema
// migrated from the domain models.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Problem{},
		&domain.ProblemStatus{},
		&domain.Course{},
		&domain.UserCourse{},
		&domain.CourseContent{},
		&domain.UserContentProgress{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: email, PasswordHash: "hash", Role: domain.RoleStudent}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProblem(t *testing.T, db *gorm.DB, title, difficulty, category string, tags ...string) *domain.Problem {
	t.Helper()
	p := &domain.Problem{
		Title:      title,
		Difficulty: difficulty,
		Category:   category,
		Tags:       datatypes.NewJSONSlice(tags),
		Template:   domain.TemplateMultipleChoice,
		Content:    "content of " + title,
		Options:    datatypes.JSON(`["a","b"]`),
	}
	require.NoError(t, NewProblemRepo(db).Create(t.Context(), p))
	return p
}
