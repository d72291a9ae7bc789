package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/hash"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/pkg/logging"
	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	Repo          *repo.GormRepo
	Carts         *CartStore
	Events        mykafka.Publisher
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Address  string
	Contact  string
}

type LoginResult struct {
	tokens.Pair
	User      *models.User
	SessionID string
	CartCount int
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, domain.Invalid("All fields are required.")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, domain.Invalid("Please enter a valid email address.")
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) {
			return nil, domain.Invalid(fmt.Sprintf("Password should be at least %d characters long.", hash.MinPasswordLength))
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	u := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		Address:      strings.TrimSpace(in.Address),
		Contact:      strings.TrimSpace(in.Contact),
		Role:         domain.RoleUser,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, fmt.Errorf("username or email already registered: %w", domain.ErrConflict)
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, domain.Persistence("create user", err)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicUser, mykafka.EventUserRegistered, userKeyID(u.ID),
		mykafka.UserPayload{UserID: u.ID, Username: u.Username})
	return u, nil
}

// Login checks the credentials, opens a new session and copies the
// persisted cart into it.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	u, err := s.Repo.FindUserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("login failed", "status", 401, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, domain.Persistence("find user", err)
	}
	if !hash.CheckPassword(u.PasswordHash, password) {
		l.Warn("login failed", "status", 401, "reason", "bad password", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	sid := uuid.NewString()
	pair, err := s.issue(ctx, u, sid)
	if err != nil {
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}

	res := &LoginResult{Pair: *pair, User: u, SessionID: sid}
	sh := domain.Shopper{UserID: u.ID, SessionID: sid, Role: u.Role}
	if items, err := s.Carts.Refresh(ctx, sh); err != nil {
		l.Warn("cart_restore_failed", "user_id", u.ID, "error", err)
	} else {
		res.CartCount = itemCount(items)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicUser, mykafka.EventUserLoggedIn, userKeyID(u.ID),
		mykafka.UserPayload{UserID: u.ID, Username: u.Username})
	return res, nil
}

// Refresh rotates a refresh token. The session id is carried over so the
// session cart survives the rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("refresh subject: %w", err)
	}
	u, err := s.Repo.GetUserByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}

	return s.rotate(ctx, u, claims.SessionID, claims.ID)
}

// Logout revokes the refresh token and drops the cart mirror. The persisted
// cart stays, and the next read by any of the user's sessions rebuilds the
// mirror from it.
func (s *AuthService) Logout(ctx context.Context, sh domain.Shopper, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "user_id", sh.UserID)

	if refreshToken != "" {
		if err := s.Repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
			return domain.Persistence("revoke refresh token", err)
		}
	}
	if sh.UserID != 0 {
		if err := s.Carts.Drop(ctx, sh); err != nil {
			l.Warn("session_drop_failed", "error", err)
		}
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, u *models.User, sid string) (*tokens.Pair, error) {
	pair, jti, err := s.sign(u, sid)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveRefreshToken(ctx, refreshRow(u.ID, sid, jti, pair)); err != nil {
		return nil, domain.Persistence("save refresh token", err)
	}
	return pair, nil
}

func (s *AuthService) rotate(ctx context.Context, u *models.User, sid, oldJTI string) (*tokens.Pair, error) {
	pair, jti, err := s.sign(u, sid)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, oldJTI, refreshRow(u.ID, sid, jti, pair)); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) sign(u *models.User, sid string) (*tokens.Pair, string, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)
	subject := userKeyID(u.ID)

	access, err := tokens.NewAccessToken(s.AccessSecret, subject, u.Role, sid, accessExp)
	if err != nil {
		return nil, "", fmt.Errorf("sign access token: %w", err)
	}
	refresh, jti, err := tokens.NewRefreshToken(s.RefreshSecret, subject, sid, refreshExp)
	if err != nil {
		return nil, "", fmt.Errorf("sign refresh token: %w", err)
	}
	return &tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, jti, nil
}

func refreshRow(userID uint, sid, jti string, pair *tokens.Pair) *models.RefreshToken {
	return &models.RefreshToken{
		Token:     tokens.Sha256Hex(pair.RefreshToken),
		JTI:       jti,
		UserID:    userID,
		SessionID: sid,
		ExpiresAt: pair.RefreshExp,
	}
}
