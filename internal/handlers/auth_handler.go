package handlers

import (
	"chatapp/internal/services"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const avatarField = "avatar"

type AuthHandler struct {
	service       *services.AuthService
	logger        *slog.Logger
	tracer        trace.Tracer
	maxUploadSize int64
}

func NewAuthHandler(service *services.AuthService, maxUploadSize int64, logger *slog.Logger, tracer trace.Tracer) *AuthHandler {
	return &AuthHandler{service: service, maxUploadSize: maxUploadSize, logger: logger, tracer: tracer}
}

func (a *AuthHandler) Register(c *gin.Context) {
	ctx, span := a.tracer.Start(c.Request.Context(), "AuthHandler.Register")
	defer span.End()

	if a.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadSize)
	}

	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, span, a.logger, badRequest("please enter all the fields"))
		return
	}

	upload, closeUpload, err := a.avatarUpload(c)
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		a.logger.Warn("ignoring unreadable avatar", "error", err)
	}
	defer closeUpload()

	user, err := a.service.Register(ctx, services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   upload,
	})
	if err != nil {
		respondError(c, span, a.logger, err)
		return
	}

	span.SetAttributes(attribute.String("user.id", user.ID.Hex()))
	respond(c, http.StatusCreated, user, "user registered successfully")
}

func (a *AuthHandler) Login(c *gin.Context) {
	ctx, span := a.tracer.Start(c.Request.Context(), "AuthHandler.Login")
	defer span.End()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, span, a.logger, badRequest("email and password are required"))
		return
	}

	user, token, err := a.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, span, a.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"user": user, "token": token}, "login successful")
}

func (a *AuthHandler) Logout(c *gin.Context) {
	ctx, span := a.tracer.Start(c.Request.Context(), "AuthHandler.Logout")
	defer span.End()

	if err := a.service.Logout(ctx, c.GetString(tokenKey)); err != nil {
		respondError(c, span, a.logger, err)
		return
	}

	respond(c, http.StatusOK, nil, "logged out")
}

// SearchUsers serves both GET /user?search= and GET /user/search?search=.
func (a *AuthHandler) SearchUsers(c *gin.Context) {
	ctx, span := a.tracer.Start(c.Request.Context(), "AuthHandler.SearchUsers")
	defer span.End()

	users, err := a.service.SearchUsers(ctx, currentUserID(c), c.Query("search"))
	if err != nil {
		respondError(c, span, a.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	respond(c, http.StatusOK, users, "users fetched")
}

func (a *AuthHandler) UpdateAvatar(c *gin.Context) {
	ctx, span := a.tracer.Start(c.Request.Context(), "AuthHandler.UpdateAvatar")
	defer span.End()

	if a.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadSize)
	}

	upload, closeUpload, err := a.avatarUpload(c)
	defer closeUpload()
	if err != nil {
		respondError(c, span, a.logger, badRequest("avatar file is required"))
		return
	}

	user, err := a.service.UpdateAvatar(ctx, currentUserID(c), upload)
	if err != nil {
		respondError(c, span, a.logger, err)
		return
	}

	respond(c, http.StatusOK, user, "avatar updated")
}

func (a *AuthHandler) avatarUpload(c *gin.Context) (*services.AvatarUpload, func(), error) {
	noop := func() {}

	header, err := c.FormFile(avatarField)
	if err != nil {
		return nil, noop, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}

	return &services.AvatarUpload{
		FileName:    header.Filename,
		ContentType: contentType(header),
		Body:        file,
		Size:        header.Size,
	}, func() { file.Close() }, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// bearerToken reads the token from an "Authorization: Bearer" header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func (a *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			respondError(c, nil, a.logger, fmt.Errorf("%w: no token", services.ErrInvalidToken))
			return
		}

		userID, err := a.service.ValidateToken(c.Request.Context(), tokenStr)
		if err != nil {
			respondError(c, nil, a.logger, err)
			return
		}

		c.Set(userIDKey, userID)
		c.Set(tokenKey, tokenStr)

		a.logger.Debug("request authorized", "userID", userID)
		c.Next()
	}
}
