package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidToken covers malformed, expired and wrongly scoped tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenUsed signals a magic link that was already redeemed.
	ErrTokenUsed = errors.New("auth: magic link already used")
	// ErrInvalidInput covers missing or malformed registration fields.
	ErrInvalidInput = errors.New("auth: invalid input")
)

const (
	sessionTTL   = 24 * time.Hour
	magicLinkTTL = 15 * time.Minute

	purposeSession   = "session"
	purposeMagicLink = "magic_link"
)

// NonceStore records redeemed one-time token ids.
type NonceStore interface {
	// Consume returns false when id was already consumed.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Service handles authentication business logic.
type Service struct {
	repo      Repository
	nonces    NonceStore
	jwtSecret []byte
	now       func() time.Time
}

// LoginResult bundles the token and domain user returned after a successful login.
type LoginResult struct {
	Token string
	User  User
}

type claims struct {
	ClientID string `json:"client_id"`
	Role     Role   `json:"role"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

// NewService creates a new authentication service.
func NewService(repo Repository, nonces NonceStore, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		nonces:    nonces,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates a new user account inside a client.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, fmt.Errorf("%w: email and full_name are required", ErrInvalidInput)
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}

	role := Role(strings.TrimSpace(string(req.Role)))
	if role == "" {
		role = RoleUser
	}
	if !isValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		ClientID:     req.ClientID,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(passwordHash),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Login authenticates a user and returns a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	return s.session(user)
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns the user registered with email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// VerifyToken validates a session token and returns the caller identity.
func (s *Service) VerifyToken(tokenString string) (Identity, error) {
	c, err := s.parse(tokenString, purposeSession)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: c.Subject, ClientID: c.ClientID, Role: c.Role}, nil
}

// CreateWithTemporaryPassword provisions a user with a generated password
// that must be changed on first login. The clear password is returned once.
func (s *Service) CreateWithTemporaryPassword(ctx context.Context, clientID, email, fullName string, role Role) (User, string, error) {
	password, err := temporaryPassword()
	if err != nil {
		return User{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("auth: hash password: %w", err)
	}
	if fullName = strings.TrimSpace(fullName); fullName == "" {
		fullName = email
	}
	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		ClientID:           clientID,
		Email:              strings.ToLower(strings.TrimSpace(email)),
		FullName:           fullName,
		PasswordHash:       string(hash),
		Role:               role,
		MustChangePassword: true,
	})
	if err != nil {
		return User{}, "", err
	}
	return user, password, nil
}

// IssueTemporaryPassword resets the password of an existing user.
func (s *Service) IssueTemporaryPassword(ctx context.Context, userID string) (string, error) {
	password, err := temporaryPassword()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), true); err != nil {
		return "", err
	}
	return password, nil
}

// IssueMagicLink returns baseURL with a one-time login token valid for 15
// minutes.
func (s *Service) IssueMagicLink(user User, baseURL string) (string, error) {
	now := s.now()
	token, err := s.sign(claims{
		ClientID: user.ClientID,
		Role:     user.Role,
		Purpose:  purposeMagicLink,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(magicLinkTTL)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("auth: sign magic link: %w", err)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("auth: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RedeemMagicLink exchanges a magic link token for a session. Each token works
// once.
func (s *Service) RedeemMagicLink(ctx context.Context, tokenString string) (LoginResult, error) {
	c, err := s.parse(tokenString, purposeMagicLink)
	if err != nil {
		return LoginResult{}, err
	}
	if s.nonces != nil {
		fresh, err := s.nonces.Consume(ctx, c.ID, magicLinkTTL)
		if err != nil {
			return LoginResult{}, fmt.Errorf("auth: consume magic link: %w", err)
		}
		if !fresh {
			return LoginResult{}, ErrTokenUsed
		}
	}

	user, err := s.repo.GetUserByID(ctx, c.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidToken
		}
		return LoginResult{}, err
	}
	return s.session(user)
}

func (s *Service) session(user User) (LoginResult, error) {
	now := s.now()
	token, err := s.sign(claims{
		ClientID: user.ClientID,
		Role:     user.Role,
		Purpose:  purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

func (s *Service) sign(c claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.jwtSecret)
}

func (s *Service) parse(tokenString, purpose string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Purpose != purpose || c.Subject == "" || c.ClientID == "" || !isValidRole(c.Role) {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func isValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func temporaryPassword() (string, error) {
	out := make([]byte, 16)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("auth: generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
