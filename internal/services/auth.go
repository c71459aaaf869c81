package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"

	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/repository"
)

const (
	refreshTokenTTL    = 7 * 24 * time.Hour
	passwordResetTTL   = time.Hour
	resetRateLimitTTL  = 60 * time.Second
	recentLoginWindow  = 5 * time.Minute
	bcryptCost         = 12
	accessTokenSeconds = 900
)

// EngineReleaser drops in-memory timer state for a user.
type EngineReleaser interface {
	Release(owner uuid.UUID)
}

type AuthService struct {
	userRepo       *repository.UserRepo
	redis          *redis.Client
	jwt            *middleware.JWTAuth
	email          *EmailService
	engines        EngineReleaser
	googleClientID string
}

func NewAuthService(userRepo *repository.UserRepo, redisClient *redis.Client, jwt *middleware.JWTAuth, email *EmailService, engines EngineReleaser, googleClientID string) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		redis:          redisClient,
		jwt:            jwt,
		email:          email,
		engines:        engines,
		googleClientID: googleClientID,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	// Validate all fields at once
	fieldErrors := make(map[string]string)
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return nil, &models.ValidationError{Fields: fieldErrors}
	}

	_, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, &models.ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		AuthProvider: models.AuthProviderPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Create default settings
	s.userRepo.CreateSettings(ctx, user.ID)

	return s.issueTokens(ctx, user, time.Now())
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, &models.UnauthorizedError{Message: "This account uses Google sign-in"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &models.UnauthorizedError{Message: "Invalid email or password"}
	}

	s.userRepo.UpdateLastLogin(ctx, user.ID)

	return s.issueTokens(ctx, user, time.Now())
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	stored, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, &models.UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}

	userID, authTime, err := decodeRefreshValue(stored)
	if err != nil {
		return nil, err
	}

	// Delete old token (rotation)
	s.redis.Del(ctx, "refresh:"+refreshToken)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.UnauthorizedError{Message: "Account no longer exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user, authTime)
}

// Logout revokes the refresh token and releases the user's timer.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if s.engines != nil && userID != uuid.Nil {
		s.engines.Release(userID)
	}
	return s.redis.Del(ctx, "refresh:"+refreshToken).Err()
}

// RequestPasswordReset always succeeds for unknown emails so callers cannot
// discover which addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	rateLimitKey := fmt.Sprintf("reset_limit:%s", user.ID.String())
	exists, _ := s.redis.Exists(ctx, rateLimitKey).Result()
	if exists > 0 {
		return &models.RateLimitError{Message: "Please wait 60 seconds before requesting another reset email"}
	}

	token, err := generateToken(32)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, "password_reset:"+token, user.ID.String(), passwordResetTTL).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	s.redis.Set(ctx, rateLimitKey, "1", resetRateLimitTTL)

	go func() {
		if err := s.email.SendPasswordResetEmail(user.Email, token); err != nil {
			log.Printf("password reset email: %v", err)
		}
	}()

	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req models.PasswordResetConfirmRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return &models.ValidationError{Fields: map[string]string{"new_password": err.Error()}}
	}

	userIDStr, err := s.redis.Get(ctx, "password_reset:"+req.Token).Result()
	if err != nil {
		return &models.NotFoundError{Message: "Invalid or expired reset token"}
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user ID in token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.redis.Del(ctx, "password_reset:"+req.Token)
	return nil
}

// DeleteAccount removes the user and all their data. The access token must
// have been issued within the last few minutes.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, authTime time.Time) error {
	if requiresReauth(authTime, time.Now()) {
		return &models.ReauthenticationRequiredError{}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.NotFoundError{Message: "Account not found"}
		}
		return err
	}

	sessions, intervals, err := s.userRepo.CountActivity(ctx, userID)
	if err != nil {
		return err
	}

	if s.engines != nil {
		s.engines.Release(userID)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return &models.PersistenceError{Op: "delete account", Err: err}
	}

	go func() {
		if err := s.email.SendAccountDeletedEmail(user.Email, sessions, intervals); err != nil {
			log.Printf("account deleted email: %v", err)
		}
	}()
	return nil
}

func requiresReauth(authTime, now time.Time) bool {
	return authTime.IsZero() || now.Sub(authTime) > recentLoginWindow
}

// issueTokens mints an access and refresh pair. authTime is the last
// credential sign-in and is carried unchanged through refreshes.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User, authTime time.Time) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email, authTime)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	err = s.redis.Set(ctx, "refresh:"+refreshToken, encodeRefreshValue(user.ID, authTime), refreshTokenTTL).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    accessTokenSeconds,
	}, nil
}

func encodeRefreshValue(userID uuid.UUID, authTime time.Time) string {
	return userID.String() + "|" + strconv.FormatInt(authTime.Unix(), 10)
}

// decodeRefreshValue reads a stored refresh entry. Entries without an auth
// time yield a zero time, which always requires re-authentication.
func decodeRefreshValue(v string) (uuid.UUID, time.Time, error) {
	idPart, authPart, _ := strings.Cut(v, "|")
	userID, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("invalid user ID: %w", err)
	}
	unix, err := strconv.ParseInt(authPart, 10, 64)
	if err != nil || unix <= 0 {
		return userID, time.Time{}, nil
	}
	return userID, time.Unix(unix, 0), nil
}

// GoogleLogin verifies a Google ID token and logs in or creates the user.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*models.AuthTokens, error) {
	if s.googleClientID == "" {
		return nil, &models.ValidationError{Fields: map[string]string{"google": "Google sign-in is not configured"}}
	}

	payload, err := idtoken.Validate(ctx, idToken, s.googleClientID)
	if err != nil {
		return nil, &models.UnauthorizedError{Message: "Invalid Google token"}
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	email = strings.ToLower(email)
	if email == "" || payload.Subject == "" {
		return nil, &models.ValidationError{Fields: map[string]string{"google": "Google account missing email"}}
	}

	// Existing Google user
	user, err := s.userRepo.GetByGoogleID(ctx, payload.Subject)
	if err == nil {
		s.userRepo.UpdateLastLogin(ctx, user.ID)
		return s.issueTokens(ctx, user, time.Now())
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Existing email user: link the Google account
	user, err = s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		s.userRepo.LinkGoogle(ctx, user.ID, payload.Subject)
		s.userRepo.UpdateLastLogin(ctx, user.ID)
		return s.issueTokens(ctx, user, time.Now())
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	googleID := payload.Subject
	newUser := &models.User{
		Email:        email,
		FullName:     name,
		AuthProvider: models.AuthProviderGoogle,
		GoogleID:     &googleID,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, err
	}
	s.userRepo.CreateSettings(ctx, newUser.ID)

	return s.issueTokens(ctx, newUser, time.Now())
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
