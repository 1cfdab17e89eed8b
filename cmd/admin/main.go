package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/config"
	"github.com/noah-isme/storyninja-api/pkg/database"
	"github.com/noah-isme/storyninja-api/pkg/logger"
)

const usage = `usage: storyninja-admin <command> [flags]

commands:
  migrate                       apply pending schema migrations
  create-admin -email -name     create a verified admin account (password from ADMIN_PASSWORD or prompt)
  promote -email                grant the admin role to an existing account
`

var cliMeta = dto.RequestMeta{IP: "127.0.0.1", UserAgent: "storyninja-admin"}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := dispatch(ctx, cfg, logr, os.Args[1], os.Args[2:]); err != nil {
		logr.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg *config.Config, logr *zap.Logger, command string, args []string) error {
	switch command {
	case "migrate":
		return database.Migrate(cfg.Database, logr)
	case "create-admin":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		email := fs.String("email", "", "admin email")
		name := fs.String("name", "Administrator", "display name")
		_ = fs.Parse(args)
		if *email == "" {
			return errors.New("-email is required")
		}
		password, err := readPassword()
		if err != nil {
			return err
		}
		users, closeDB, err := userService(cfg, logr)
		if err != nil {
			return err
		}
		defer closeDB()
		active := true
		user, err := users.Create(ctx, dto.CreateUserRequest{
			Email:    *email,
			Password: password,
			Name:     *name,
			Role:     models.RoleAdmin,
			Active:   &active,
			Verified: true,
		}, "", cliMeta)
		if err != nil {
			return err
		}
		logr.Info("admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
		return nil
	case "promote":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		email := fs.String("email", "", "account email")
		_ = fs.Parse(args)
		if *email == "" {
			return errors.New("-email is required")
		}
		return promote(ctx, cfg, logr, *email)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func promote(ctx context.Context, cfg *config.Config, logr *zap.Logger, email string) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	existing, err := userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}

	users := newUserService(db, logr)
	role := models.RoleAdmin
	active := true
	user, err := users.Update(ctx, existing.ID, dto.UpdateUserRequest{Role: &role, Active: &active}, "", cliMeta)
	if err != nil {
		return err
	}
	logr.Info("account promoted", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

func userService(cfg *config.Config, logr *zap.Logger) (*service.UserService, func(), error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	svc := newUserService(db, logr)
	return svc, func() { _ = db.Close() }, nil
}

func newUserService(db *sqlx.DB, logr *zap.Logger) *service.UserService {
	return service.NewUserService(service.UserDeps{
		Users:   repository.NewUserRepository(db),
		Schools: repository.NewSchoolRepository(db),
		Classes: repository.NewClassRepository(db),
		Stories: repository.NewStoryRepository(db),
		Audit:   repository.NewAuditRepository(db),
	}, nil, logr)
}

func readPassword() (string, error) {
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		return password, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("set ADMIN_PASSWORD or run from a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
