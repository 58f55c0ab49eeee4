package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recuerdamed/internal/database"
	"recuerdamed/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidRole        = errors.New("invalid role")
)

type Store interface {
	CreateUser(ctx context.Context, params database.CreateUserParams) (database.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

type Authenticator struct {
	logger *slog.Logger
	store  Store
	issuer *token.Issuer
}

func NewAuthenticator(logger *slog.Logger, store Store, issuer *token.Issuer) Authenticator {
	return Authenticator{logger: logger, store: store, issuer: issuer}
}

type User struct {
	ID        uuid.UUID
	Email     string
	Role      database.UserRole
	CreatedAt time.Time
}

type RegisterParams struct {
	Email    string
	Password string
	Role     database.UserRole
}

func (a *Authenticator) Register(ctx context.Context, params RegisterParams) (User, string, error) {
	var user User

	if params.Role != database.UserRolePatient && params.Role != database.UserRoleCaregiver {
		return user, "", ErrInvalidRole
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return user, "", fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser, err := a.store.CreateUser(ctx, database.CreateUserParams{
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Role:         params.Role,
	})
	if err != nil {
		if errors.Is(err, database.ErrUserEmailTaken) {
			return user, "", ErrEmailTaken
		}
		return user, "", fmt.Errorf("failed to create user: %w", err)
	}

	signed, err := a.issuer.Issue(token.Identity{UserID: dbUser.ID, Role: string(dbUser.Role)})
	if err != nil {
		return user, "", fmt.Errorf("failed to issue token: %w", err)
	}

	a.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", dbUser.ID.String()),
		slog.String("role", string(dbUser.Role)))

	user = User{ID: dbUser.ID, Email: dbUser.Email, Role: dbUser.Role, CreatedAt: dbUser.CreatedAt}
	return user, signed, nil
}

type LoginParams struct {
	Email    string
	Password string
}

func (a *Authenticator) Login(ctx context.Context, params LoginParams) (User, string, error) {
	var user User

	dbUser, err := a.store.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return user, "", ErrInvalidCredentials
		}
		return user, "", fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash), []byte(params.Password)); err != nil {
		return user, "", ErrInvalidCredentials
	}

	signed, err := a.issuer.Issue(token.Identity{UserID: dbUser.ID, Role: string(dbUser.Role)})
	if err != nil {
		return user, "", fmt.Errorf("failed to issue token: %w", err)
	}

	a.logger.InfoContext(ctx, "user logged in", slog.String("user_id", dbUser.ID.String()))

	user = User{ID: dbUser.ID, Email: dbUser.Email, Role: dbUser.Role, CreatedAt: dbUser.CreatedAt}
	return user, signed, nil
}

// GetUser resolves a verified token subject into a full user record.
func (a *Authenticator) GetUser(ctx context.Context, userID uuid.UUID) (User, error) {
	var user User

	dbUser, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return user, ErrInvalidCredentials
		}
		return user, fmt.Errorf("failed to get user by ID: %w", err)
	}

	user = User{ID: dbUser.ID, Email: dbUser.Email, Role: dbUser.Role, CreatedAt: dbUser.CreatedAt}
	return user, nil
}
