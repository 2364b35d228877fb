// Command quizctl runs schema migrations and bootstraps admin accounts.
//
//	quizctl migrate up|down|status
//	quizctl create-admin -email admin@example.com -username admin
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/quizhub/quiz-api/internal/config"
	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/infrastructure/mysql"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
	pwhash "github.com/quizhub/quiz-api/internal/pkg/password"
	"github.com/quizhub/quiz-api/internal/pkg/validate"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const usage = `usage:
  quizctl migrate up|down|status
  quizctl create-admin -email <email> -username <name> [-student-id <id>]`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "quizctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) (err error) {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	db, err := mysql.Open(ctx, mysql.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sqlDB.Close()) }()

	switch args[0] {
	case "migrate":
		return migrate(ctx, sqlDB, args[1:])
	case "create-admin":
		return createAdminCmd(ctx, db, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func migrate(ctx context.Context, db *sql.DB, args []string) error {
	if len(args) != 1 {
		return errors.New(usage)
	}
	switch args[0] {
	case "up":
		return mysql.Migrate(ctx, db)
	case "down":
		return mysql.Rollback(ctx, db)
	case "status":
		return mysql.MigrationStatus(ctx, db)
	default:
		return fmt.Errorf("unknown migrate direction %q", args[0])
	}
}

type adminStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

func createAdminCmd(ctx context.Context, db *gorm.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "admin email address")
	username := fs.String("username", "", "admin username")
	studentID := fs.String("student-id", "", "optional student id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprint(out, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	u, err := createAdmin(ctx, mysql.NewUserRepo(db), *email, *username, *studentID, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "admin %s created with id %d\n", u.Email, u.ID)
	return nil
}

func createAdmin(ctx context.Context, users adminStore, email, username, studentID string, password []byte) (*domain.User, error) {
	defer func() {
		for i := range password {
			password[i] = 0
		}
	}()

	req := domain.RegisterRequest{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: string(password),
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err := users.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", req.Email, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := pwhash.Hash(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if studentID != "" {
		u.StudentID = &studentID
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
