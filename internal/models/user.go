package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Avatar    string             `bson:"avatar" json:"avatar"`
	IsAdmin   bool               `bson:"isAdmin" json:"isAdmin"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewUser(name, email, passwordHash, avatar string) *User {
	now := time.Now().UTC()
	return &User{
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		Avatar:    avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
