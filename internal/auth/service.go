// Package auth signs staff in with email and password, issues HS256 session tokens
// and gates HTTP routes by role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/telemetry"
	"github.com/wolfeidau/casework/internal/validate"
)

// Sentinel errors
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// Provider is the authentication collaborator used by the API and CLI.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
}

// CreateUserRequest provisions a staff account.
type CreateUserRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	Name           string `json:"name" validate:"required,max=200"`
	Role           string `json:"role" validate:"required,oneof=admin staff developer"`
	OrganizationID string `json:"organizationId" validate:"required"`
}

// Service implements Provider over the document store. Users live in the
// top-level users collection.
type Service struct {
	docs        store.DocumentStore
	tokens      *TokenIssuer
	revocations *Revocations
	validator   *validate.Validator
	cost        int
	dummyHash   []byte
	now         func() time.Time
}

var _ Provider = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func NewService(docs store.DocumentStore, tokens *TokenIssuer, revocations *Revocations, opts ...Option) *Service {
	s := &Service{
		docs:        docs,
		tokens:      tokens,
		revocations: revocations,
		validator:   validate.New(),
		cost:        bcrypt.DefaultCost,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("casework"), s.cost)
	return s
}

func usersPath() store.Path {
	return store.Root(store.CollectionUsers)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignIn checks the password and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	metrics := telemetry.GetMetrics()

	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Compare anyway so unknown emails take as long as bad passwords.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			metrics.SignInFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "unknown_user")))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.SignInFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "bad_password")))
		return nil, ErrInvalidCredentials
	}

	session, err := s.tokens.IssueToken(*user)
	if err != nil {
		return nil, err
	}

	metrics.SignInsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("role", user.Role)))
	log.Info().Str("user_id", user.ID).Str("org_id", user.OrganizationID).Msg("Signed in")
	return session, nil
}

// SignOut revokes the token until it would have expired.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	s.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
	log.Info().Str("user_id", claims.Subject).Msg("Signed out")
	return nil
}

// Authenticate verifies a token and returns its principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if s.revocations.IsRevoked(ctx, claims.ID) {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	return &Principal{
		UserID:    claims.Subject,
		OrgID:     claims.OrgID,
		Role:      claims.Role,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// CurrentUser returns the user a valid token belongs to.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	principal, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, principal.UserID)
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.docs.Get(ctx, usersPath().Doc(id))
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = doc.ID()
	return &user, nil
}

// CreateUser provisions an account. It issues no token, so the caller's own
// session is left as it is.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.findByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, req.Email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	user := models.User{
		ID:             id.String(),
		Email:          req.Email,
		Name:           req.Name,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
		PasswordHash:   string(hash),
		CreatedAt:      models.NewTimestamp(s.now()),
	}
	data, err := store.Encode(user)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, usersPath().Doc(user.ID), data); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("org_id", user.OrganizationID).Str("role", user.Role).Msg("Created user")
	return &user, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := s.docs.Query(ctx, usersPath(), store.Query{}.Where("email", email).WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := docs[0].DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = docs[0].ID()
	return &user, nil
}
