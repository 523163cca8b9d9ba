package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"backend-mapssaver/internal/db"
	"backend-mapssaver/internal/mail"
	"backend-mapssaver/internal/validation"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	confirmTokenTTL = 48 * time.Hour
	resetTokenTTL   = time.Hour
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAlreadyActive      = errors.New("account has been already activated")
	ErrInvalidToken       = errors.New("token invalid")
)

type Service struct {
	secret   []byte
	db       db.Querier
	tokens   *TokenStore
	mailer   mail.Sender
	composer mail.Composer

	accessTTL  time.Duration
	refreshTTL time.Duration
	confirmTTL time.Duration
	resetTTL   time.Duration
}

type Option func(*Service)

func WithTokenStore(store *TokenStore) Option {
	return func(s *Service) { s.tokens = store }
}

func WithMail(sender mail.Sender, composer mail.Composer) Option {
	return func(s *Service) {
		s.mailer = sender
		s.composer = composer
	}
}

// WithTTL overrides token lifetimes. Zero values keep the defaults.
func WithTTL(access, refresh, confirm, reset time.Duration) Option {
	return func(s *Service) {
		for _, d := range []struct {
			dst *time.Duration
			v   time.Duration
		}{{&s.accessTTL, access}, {&s.refreshTTL, refresh}, {&s.confirmTTL, confirm}, {&s.resetTTL, reset}} {
			if d.v > 0 {
				*d.dst = d.v
			}
		}
	}
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier, opts ...Option) *Service {
	s := &Service{
		secret:     []byte(secret),
		db:         db,
		mailer:     mail.NewLogSender(zap.NewNop()),
		accessTTL:  accessTokenTTL,
		refreshTTL: refreshTokenTTL,
		confirmTTL: confirmTokenTTL,
		resetTTL:   resetTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	signTokenFn       = (*Service).signToken
	parseWithClaimsFn = jwt.ParseWithClaims
)

// Register stores an inactive account and mails its confirmation link.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if errs := validation.Struct(req); len(errs) > 0 {
		return User{}, errs
	}

	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Name,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash, active)
		VALUES ($1,$2,$3,$4,false)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Username, user.PasswordHash)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			errs := validation.Errors{}
			errs.Add("email", "There is already an account with this email.")
			return User{}, errs
		}
		return User{}, err
	}

	if err := s.sendConfirmation(ctx, user.Email); err != nil {
		return User{}, err
	}
	return user, nil
}

// Confirm activates the account the token was issued for.
func (s *Service) Confirm(ctx context.Context, token, email string) error {
	issuedFor, err := s.tokens.Lookup(ctx, PurposeConfirm, token)
	if errors.Is(err, ErrTokenNotFound) || (err == nil && issuedFor != email) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}

	user, err := s.userByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if user.Active {
		return ErrAlreadyActive
	}

	if _, err := s.db.Exec(ctx, `UPDATE users SET active=true, updated_at=now() WHERE id=$1`, user.ID); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, PurposeConfirm, token)
}

// ResendConfirmation issues a fresh confirmation link for an inactive account.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Active {
		return ErrAlreadyActive
	}
	return s.sendConfirmation(ctx, user.Email)
}

// RequestPasswordReset mails a reset link. Unknown and inactive accounts are
// reported as ErrUserNotFound.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.Active {
		return ErrUserNotFound
	}

	token, err := s.tokens.Issue(ctx, PurposeReset, user.Email, s.resetTTL)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, s.composer.ResetPassword(user.Email, token))
}

// ResetPassword replaces the password of the account the reset token was
// issued for. The new password must differ from the current one.
func (s *Service) ResetPassword(ctx context.Context, token string, req NewPasswordRequest) error {
	email, err := s.tokens.Lookup(ctx, PurposeReset, token)
	if errors.Is(err, ErrTokenNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.Active {
		return ErrUserNotFound
	}

	errs := validation.Struct(req)
	if req.Password != "" && bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) == nil {
		errs.Add("password", "The new password is same as old password.")
	}
	if err := errs.Err(); err != nil {
		return err
	}

	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, user.ID, string(hash)); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, PurposeReset, token)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	user, err := s.userByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}
	if !user.Active {
		return User{}, TokenResponse{}, ErrAccountDisabled
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, err := signTokenFn(s, userID, s.accessTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, userID, s.refreshTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, userID, s.refreshTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return "", errors.New("refresh token invalid")
	}
	return claims.UserID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) sendConfirmation(ctx context.Context, email string) error {
	token, err := s.tokens.Issue(ctx, PurposeConfirm, email, s.confirmTTL)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, s.composer.Confirmation(email, token))
}

func (s *Service) userByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, username, password_hash, active, created_at, updated_at
		FROM users WHERE email = $1
	`, email)

	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) signToken(userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}
