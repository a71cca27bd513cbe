package services

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const minPasswordLength = 6

type AuthSettings struct {
	JWTKey            []byte
	TokenTTL          time.Duration
	PlaceholderAvatar string
}

type AvatarUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Size        int64
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   *AvatarUpload
}

type AuthService struct {
	userRepo     ports.IUserRepository
	hasher       ports.IHasher
	logger       *slog.Logger
	blacklist    ports.ITokenBlacklist
	avatars      ports.IAvatarStorage
	emailService ports.IEmailService
	settings     AuthSettings
}

func NewAuthService(repo ports.IUserRepository, emailService ports.IEmailService, hasher ports.IHasher, blacklist ports.ITokenBlacklist, avatars ports.IAvatarStorage, settings AuthSettings, logger *slog.Logger) *AuthService {
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:     repo,
		emailService: emailService,
		hasher:       hasher,
		blacklist:    blacklist,
		avatars:      avatars,
		settings:     settings,
		logger:       logger,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" || in.Password == "" {
		s.logger.Warn("missing required fields in registration")
		return nil, invalid("name, email and password are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	s.logger.Debug("attempting user registration", "email", email)

	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		s.logger.Warn("email already registered", "email", email)
		return nil, ErrEmailTaken
	}

	hashedPassword, err := s.hasher.GenerateFromPassword([]byte(in.Password), s.hasher.DefaultCost())
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	user := models.NewUser(name, email, string(hashedPassword), "")
	user.ID = primitive.NewObjectID()
	user.Avatar = s.registrationAvatar(ctx, user, in.Avatar)

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("user creation failed", "error", err)
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	if err := s.emailService.SendWelcomeEmail(email, name); err != nil {
		s.logger.Warn("failed to send welcome email", "error", err)
	}

	user.Password = ""
	s.logger.Info("user registered successfully", "userID", user.ID.Hex())
	return user, nil
}

// registrationAvatar never fails: a broken avatar host only costs the user
// their picture.
func (s *AuthService) registrationAvatar(ctx context.Context, user *models.User, upload *AvatarUpload) string {
	if upload == nil {
		return s.placeholderAvatar(user.Name)
	}
	if s.avatars == nil {
		s.logger.Warn("avatar storage disabled, using placeholder", "userID", user.ID.Hex())
		return s.placeholderAvatar(user.Name)
	}

	avatarURL, err := s.avatars.UploadAvatar(ctx, user.ID.Hex(), upload.FileName, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		s.logger.Warn("avatar upload failed, using placeholder", "userID", user.ID.Hex(), "error", err)
		return s.placeholderAvatar(user.Name)
	}
	return avatarURL
}

func (s *AuthService) placeholderAvatar(name string) string {
	if !strings.Contains(s.settings.PlaceholderAvatar, "%s") {
		return s.settings.PlaceholderAvatar
	}
	return fmt.Sprintf(s.settings.PlaceholderAvatar, url.QueryEscape(name))
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.logger.Warn("empty email or password")
		return nil, "", invalid("email and password are required")
	}

	s.logger.Debug("attempting login", "email", email)

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("user lookup failed", "email", email, "error", err)
		return nil, "", err
	}
	if user == nil {
		s.logger.Warn("user not found", "email", email)
		return nil, "", ErrInvalidCredentials
	}

	if err := s.hasher.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("invalid password", "email", email)
		return nil, "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.Hex(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.settings.TokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.settings.JWTKey)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		return nil, "", fmt.Errorf("authentication failed: %w", err)
	}

	user.Password = ""
	s.logger.Info("login successful", "userID", user.ID.Hex())
	return user, tokenString, nil
}

// ValidateToken returns the user id carried by a live, unrevoked token.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: token is required", ErrInvalidToken)
	}

	if s.blacklist != nil {
		isRevoked, err := s.blacklist.IsRevoked(ctx, hashToken(tokenString))
		if err != nil {
			s.logger.Error("token revocation check failed", "error", err)
			return "", err
		}
		if isRevoked {
			return "", ErrTokenRevoked
		}
	}

	claims, err := s.parseClaims(tokenString)
	if err != nil {
		s.logger.Warn("token parsing failed", "error", err)
		return "", err
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return "", fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	if _, err := primitive.ObjectIDFromHex(userID); err != nil {
		return "", fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}

	s.logger.Debug("token validated", "userID", userID)
	return userID, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return err
	}

	expiration := s.settings.TokenTTL
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiration = time.Until(exp.Time)
	}
	if expiration <= 0 {
		return nil
	}

	return s.RevokeToken(ctx, tokenString, expiration)
}

func (s *AuthService) RevokeToken(ctx context.Context, tokenString string, expiration time.Duration) error {
	if s.blacklist == nil {
		return errors.New("token revocation is not configured")
	}
	return s.blacklist.Revoke(ctx, hashToken(tokenString), expiration)
}

func (s *AuthService) SearchUsers(ctx context.Context, requesterID, query string) ([]models.User, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.SearchUsers(ctx, strings.TrimSpace(query), requester)
	if err != nil {
		s.logger.Error("user search failed", "error", err)
		return nil, err
	}
	return users, nil
}

func (s *AuthService) UpdateAvatar(ctx context.Context, userID string, upload *AvatarUpload) (*models.User, error) {
	id, err := parseID(userID, "user id")
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, invalid("avatar file is required")
	}
	if s.avatars == nil {
		return nil, fmt.Errorf("%w: avatar storage is not configured", ErrUpstream)
	}

	avatarURL, err := s.avatars.UploadAvatar(ctx, userID, upload.FileName, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		s.logger.Error("avatar upload failed", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	user, err := s.userRepo.UpdateAvatar(ctx, id, avatarURL)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	s.logger.Info("avatar updated", "userID", userID)
	return user, nil
}

func (s *AuthService) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.settings.JWTKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	return claims, nil
}

func hashToken(tokenString string) string {
	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}
