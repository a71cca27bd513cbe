package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Sender    primitive.ObjectID   `bson:"sender" json:"sender"`
	Content   string               `bson:"content" json:"content"`
	Chat      primitive.ObjectID   `bson:"chat" json:"chat"`
	ReadBy    []primitive.ObjectID `bson:"readBy" json:"readBy"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type MessageView struct {
	ID        primitive.ObjectID   `json:"_id"`
	Sender    *User                `json:"sender"`
	Content   string               `json:"content"`
	Chat      *ChatView            `json:"chat,omitempty"`
	ReadBy    []primitive.ObjectID `json:"readBy"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// MessageCreated is published to the event stream after a message is stored.
type MessageCreated struct {
	MessageID string    `json:"message_id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Members   []string  `json:"members"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
