package models

import (
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Chat struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name          string               `bson:"chatName" json:"chatName"`
	IsGroupChat   bool                 `bson:"isGroupChat" json:"isGroupChat"`
	Users         []primitive.ObjectID `bson:"users" json:"users"`
	GroupAdmin    *primitive.ObjectID  `bson:"groupAdmin,omitempty" json:"groupAdmin,omitempty"`
	LatestMessage *primitive.ObjectID  `bson:"latestMessage,omitempty" json:"latestMessage,omitempty"`
	DirectKey     string               `bson:"directKey,omitempty" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (c *Chat) HasMember(userID primitive.ObjectID) bool {
	for _, member := range c.Users {
		if member == userID {
			return true
		}
	}
	return false
}

func (c *Chat) IsAdmin(userID primitive.ObjectID) bool {
	return c.IsGroupChat && c.GroupAdmin != nil && *c.GroupAdmin == userID
}

// DirectKey identifies the single direct chat between two users regardless
// of who opened it.
func DirectKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// ChatView is a chat with its references resolved.
type ChatView struct {
	ID            primitive.ObjectID `json:"_id"`
	Name          string             `json:"chatName"`
	IsGroupChat   bool               `json:"isGroupChat"`
	Users         []User             `json:"users"`
	GroupAdmin    *User              `json:"groupAdmin,omitempty"`
	LatestMessage *MessageView       `json:"latestMessage,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// IDList is a list of hex object ids. The frontend sends group members
// either as a JSON array or as a JSON array encoded into a string.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		*l = ids
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return errors.New("users must be an array of ids")
	}
	if encoded == "" {
		*l = nil
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return errors.New("users must be an array of ids")
	}
	*l = ids
	return nil
}
