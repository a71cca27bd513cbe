package services_test

import (
	"chatapp/app/tests"
	"chatapp/internal/handlers"
	"chatapp/internal/models"
	"chatapp/internal/services"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	JwtKey = "test_key"
)

type loginResponse struct {
	StatusCode int  `json:"statusCode"`
	Success    bool `json:"success"`
	Data       struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	} `json:"data"`
}

func TestLogin_TableDrive(t *testing.T) {
	userID := primitive.NewObjectID()

	var ts = []struct {
		name         string
		requestBody  map[string]interface{}
		setupMocks   func(*tests.MockRepository, *tests.MockHasher)
		expectedCode int
		expectedBody string
		checkToken   bool
	}{
		{
			name: "Successful login",
			requestBody: map[string]interface{}{
				"email":    "Valid@Gmail.com",
				"password": "correctpassword",
			},
			setupMocks: func(mur *tests.MockRepository, mph *tests.MockHasher) {
				user := &models.User{
					ID:       userID,
					Name:     "valid",
					Email:    "valid@gmail.com",
					Password: "hashed",
				}
				mur.On("GetUserByEmail", mock.Anything, "valid@gmail.com").Return(user, nil)
				mph.On("CompareHashAndPassword", []byte("hashed"), []byte("correctpassword")).Return(nil)
			},
			expectedCode: http.StatusOK,
			checkToken:   true,
		},
		{
			name: "User not found",
			requestBody: map[string]interface{}{
				"email":    "nobody@gmail.com",
				"password": "password",
			},
			setupMocks: func(mur *tests.MockRepository, mph *tests.MockHasher) {
				mur.On("GetUserByEmail", mock.Anything, "nobody@gmail.com").Return(nil, nil)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: "invalid email or password",
		},
		{
			name: "Wrong password",
			requestBody: map[string]interface{}{
				"email":    "valid@gmail.com",
				"password": "wrongpassword",
			},
			setupMocks: func(mur *tests.MockRepository, mph *tests.MockHasher) {
				user := &models.User{ID: userID, Email: "valid@gmail.com", Password: "hashed"}
				mur.On("GetUserByEmail", mock.Anything, "valid@gmail.com").Return(user, nil)
				mph.On("CompareHashAndPassword", []byte("hashed"), []byte("wrongpassword")).Return(bcrypt.ErrMismatchedHashAndPassword)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: "invalid email or password",
		},
		{
			name: "Missing password",
			requestBody: map[string]interface{}{
				"email": "valid@gmail.com",
			},
			setupMocks:   func(*tests.MockRepository, *tests.MockHasher) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: "email and password are required",
		},
		{
			name: "Database failure",
			requestBody: map[string]interface{}{
				"email":    "valid@gmail.com",
				"password": "password",
			},
			setupMocks: func(mur *tests.MockRepository, mph *tests.MockHasher) {
				mur.On("GetUserByEmail", mock.Anything, "valid@gmail.com").Return(nil, errors.New("connection reset"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: "internal server error",
		},
	}

	for _, tt := range ts {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockRepository := &tests.MockRepository{}
			mockHasher := &tests.MockHasher{}
			emailService := &tests.MockEmailService{}
			logger := slog.Default()

			tt.setupMocks(mockRepository, mockHasher)

			var authService = services.NewAuthService(
				mockRepository, emailService, mockHasher,
				nil, nil, testSettings(), logger)

			var handler = handlers.NewAuthHandler(authService, 0, logger, tests.NoopTracer())

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			c.Request = tests.CreateTestRequest("/api/user/login", http.MethodPost, tt.requestBody)

			handler.Login(c)

			assert.Equal(t, tt.expectedCode, w.Code)

			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}

			if tt.checkToken {
				var response loginResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

				assert.True(t, response.Success)
				assert.Equal(t, userID, response.Data.User.ID)
				assert.NotContains(t, w.Body.String(), "hashed")

				token, err := jwt.Parse(response.Data.Token, func(token *jwt.Token) (interface{}, error) {
					return []byte(JwtKey), nil
				})
				require.NoError(t, err)
				assert.True(t, token.Valid)

				claims, ok := token.Claims.(jwt.MapClaims)
				require.True(t, ok)
				assert.Equal(t, userID.Hex(), claims["sub"])
				assert.NotEmpty(t, claims["exp"])
			}

			mockRepository.AssertExpectations(t)
			mockHasher.AssertExpectations(t)
		})
	}
}

func signedToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(JwtKey))
	require.NoError(t, err)
	return signed
}

func TestAuthService_ValidateToken(t *testing.T) {
	userID := primitive.NewObjectID().Hex()
	ctx := context.Background()

	ts := []struct {
		name          string
		token         func(t *testing.T) string
		revoked       bool
		expectedUser  string
		expectedError error
	}{
		{
			name:         "valid token",
			token:        func(t *testing.T) string { return signedToken(t, userID, time.Hour) },
			expectedUser: userID,
		},
		{
			name:          "expired token",
			token:         func(t *testing.T) string { return signedToken(t, userID, -time.Hour) },
			expectedError: services.ErrInvalidToken,
		},
		{
			name:          "revoked token",
			token:         func(t *testing.T) string { return signedToken(t, userID, time.Hour) },
			revoked:       true,
			expectedError: services.ErrTokenRevoked,
		},
		{
			name:          "malformed subject",
			token:         func(t *testing.T) string { return signedToken(t, "alice", time.Hour) },
			expectedError: services.ErrInvalidToken,
		},
		{
			name:          "garbage",
			token:         func(t *testing.T) string { return "not.a.jwt" },
			expectedError: services.ErrInvalidToken,
		},
	}

	for _, tt := range ts {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			blacklist := &tests.MockTokenBlacklist{}
			blacklist.On("IsRevoked", mock.Anything, mock.AnythingOfType("string")).Return(tt.revoked, nil)

			authService := services.NewAuthService(&tests.MockRepository{}, &tests.MockEmailService{}, &tests.MockHasher{},
				blacklist, nil, testSettings(), slog.Default())

			got, err := authService.ValidateToken(ctx, tt.token(t))

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedUser, got)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	userID := primitive.NewObjectID().Hex()
	token := signedToken(t, userID, time.Hour)

	blacklist := &tests.MockTokenBlacklist{}
	blacklist.On("Revoke", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(d time.Duration) bool {
		return d > 0 && d <= time.Hour
	})).Return(nil)
	blacklist.On("IsRevoked", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)

	authService := services.NewAuthService(&tests.MockRepository{}, &tests.MockEmailService{}, &tests.MockHasher{},
		blacklist, nil, testSettings(), slog.Default())

	require.NoError(t, authService.Logout(context.Background(), token))

	_, err := authService.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrTokenRevoked)

	blacklist.AssertExpectations(t)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := primitive.NewObjectID().Hex()

	blacklist := &tests.MockTokenBlacklist{}
	blacklist.On("IsRevoked", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)

	authService := services.NewAuthService(&tests.MockRepository{}, &tests.MockEmailService{}, &tests.MockHasher{},
		blacklist, nil, testSettings(), slog.Default())
	handler := handlers.NewAuthHandler(authService, 0, slog.Default(), tests.NoopTracer())

	eng := gin.New()
	eng.GET("/me", handler.AuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})

	ts := []struct {
		name         string
		header       string
		expectedCode int
		expectedBody string
	}{
		{name: "no header", expectedCode: http.StatusUnauthorized, expectedBody: "not authorized"},
		{name: "not bearer", header: "Basic abc", expectedCode: http.StatusUnauthorized, expectedBody: "not authorized"},
		{name: "bad token", header: "Bearer nope", expectedCode: http.StatusUnauthorized, expectedBody: "not authorized, token failed"},
		{name: "valid token", header: "Bearer " + signedToken(t, userID, time.Hour), expectedCode: http.StatusOK, expectedBody: userID},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := tests.ExecuteHandler(eng, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}
