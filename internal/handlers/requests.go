package handlers

import "chatapp/internal/models"

type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AccessChatRequest struct {
	UserID string `json:"userId"`
}

type CreateGroupRequest struct {
	Name  string        `json:"name"`
	Users models.IDList `json:"users"`
}

type RenameGroupRequest struct {
	ChatID   string `json:"chatId"`
	ChatName string `json:"chatName"`
}

// GroupMemberRequest accepts userId and the legacy usersId key.
type GroupMemberRequest struct {
	ChatID  string `json:"chatId"`
	UserID  string `json:"userId"`
	UsersID string `json:"usersId"`
}

func (r GroupMemberRequest) Member() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.UsersID
}

type SendMessageRequest struct {
	Content string `json:"content"`
	ChatID  string `json:"chatId"`
}
