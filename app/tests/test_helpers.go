package tests

import (
	"bytes"
	"chatapp/internal/models"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/trace"
)

type MockRepository struct {
	mock.Mock
}

type MockChatRepository struct {
	mock.Mock
}

type MockMessageRepository struct {
	mock.Mock
}

type MockHasher struct {
	mock.Mock
}

type MockEmailService struct {
	mock.Mock
}

type MockTokenBlacklist struct {
	mock.Mock
}

type MockAvatarStorage struct {
	mock.Mock
}

type MockEventPublisher struct {
	mock.Mock
}

type MockNotifier struct {
	mock.Mock
}

func NoopTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("")
}

func userOrNil(v interface{}) *models.User {
	if v == nil {
		return nil
	}
	return v.(*models.User)
}

func chatOrNil(v interface{}) *models.Chat {
	if v == nil {
		return nil
	}
	return v.(*models.Chat)
}

func messageOrNil(v interface{}) *models.Message {
	if v == nil {
		return nil
	}
	return v.(*models.Message)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	args := m.Called(ctx, ids)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockRepository) SearchUsers(ctx context.Context, query string, exclude primitive.ObjectID) ([]models.User, error) {
	args := m.Called(ctx, query, exclude)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error) {
	args := m.Called(ctx, id, avatar)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockChatRepository) FindOrCreateDirectChat(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error) {
	args := m.Called(ctx, a, b)
	return chatOrNil(args.Get(0)), args.Error(1)
}

func (m *MockChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *MockChatRepository) GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	args := m.Called(ctx, id)
	return chatOrNil(args.Get(0)), args.Error(1)
}

func (m *MockChatRepository) GetUserChats(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	chats, _ := args.Get(0).([]models.Chat)
	return chats, args.Error(1)
}

func (m *MockChatRepository) RenameChat(ctx context.Context, id primitive.ObjectID, name string) (*models.Chat, error) {
	args := m.Called(ctx, id, name)
	return chatOrNil(args.Get(0)), args.Error(1)
}

func (m *MockChatRepository) AddMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error) {
	args := m.Called(ctx, id, userID)
	return chatOrNil(args.Get(0)), args.Error(1)
}

func (m *MockChatRepository) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error) {
	args := m.Called(ctx, id, userID)
	return chatOrNil(args.Get(0)), args.Error(1)
}

func (m *MockChatRepository) SetLatestMessage(ctx context.Context, chatID, messageID primitive.ObjectID, at time.Time) error {
	args := m.Called(ctx, chatID, messageID, at)
	return args.Error(0)
}

func (m *MockMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) GetMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	args := m.Called(ctx, id)
	return messageOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMessageRepository) GetMessagesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, ids)
	messages, _ := args.Get(0).([]models.Message)
	return messages, args.Error(1)
}

func (m *MockMessageRepository) GetChatMessages(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	messages, _ := args.Get(0).([]models.Message)
	return messages, args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, messageID, userID primitive.ObjectID) (*models.Message, error) {
	args := m.Called(ctx, messageID, userID)
	return messageOrNil(args.Get(0)), args.Error(1)
}

func (m *MockEmailService) SendWelcomeEmail(email, name string) error {
	args := m.Called(email, name)
	return args.Error(0)
}

func (m *MockHasher) GenerateFromPassword(password []byte, cost int) ([]byte, error) {
	args := m.Called(password, cost)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockHasher) CompareHashAndPassword(storedPaswsord []byte, userPassword []byte) error {
	args := m.Called(storedPaswsord, userPassword)
	return args.Error(0)
}

func (m *MockHasher) DefaultCost() int {
	return m.Called().Int(0)
}

func (m *MockTokenBlacklist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenBlacklist) Revoke(ctx context.Context, tokenHash string, expiration time.Duration) error {
	args := m.Called(ctx, tokenHash, expiration)
	return args.Error(0)
}

func (m *MockAvatarStorage) UploadAvatar(ctx context.Context, userID, fileName, contentType string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, userID, fileName, contentType, body, size)
	return args.String(0), args.Error(1)
}

func (m *MockEventPublisher) PublishMessageCreated(ctx context.Context, event models.MessageCreated) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) BroadcastToUser(userID string, event string, data interface{}) {
	m.Called(userID, event, data)
}

func CreateTestRequest(url, method string, body interface{}) *http.Request {
	var buffer bytes.Buffer
	if body != nil {
		json.NewEncoder(&buffer).Encode(body)
	}

	req := httptest.NewRequest(method, url, &buffer)
	req.Header.Set("Content-Type", "application/json")

	return req
}

// CreateMultipartRequest builds a form request; file is attached under
// fileField when non-nil.
func CreateMultipartRequest(url, method string, fields map[string]string, fileField, fileName string, file []byte) *http.Request {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	for key, value := range fields {
		writer.WriteField(key, value)
	}
	if file != nil {
		part, _ := writer.CreateFormFile(fileField, fileName)
		part.Write(file)
	}
	writer.Close()

	req := httptest.NewRequest(method, url, &buffer)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func ExecuteHandler(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
