package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/quizhub/quiz-api/internal/domain"
)

// UserRepo provides typed operations on the users table.
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error, "create user")
}

func (r *UserRepo) Get(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *UserRepo) findBy(ctx context.Context, column, value string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where(column+" = ?", value).Take(&u).Error
	if err != nil {
		return nil, translate(err, "get user by "+column)
	}
	return &u, nil
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error
	return users, translate(err, "list users")
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return translate(res.Error, "update password")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "update password")
	}
	return nil
}
