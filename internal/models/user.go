package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultRole is assigned to every new account.
const DefaultRole = "user"

// Account represents a registered user.
type Account struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Username    string             `bson:"username"`
	Email       string             `bson:"email"`
	Password    string             `bson:"password"`
	Role        string             `bson:"role"`
	CreatedAt   time.Time          `bson:"createAt"`
	UpdatedAt   time.Time          `bson:"updateAt"`
	LastLoginAt time.Time          `bson:"lastLoginAt"`
}

// Summary is the public view of an account. The password hash never leaves the service.
type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Summary projects the account onto its public fields.
func (a *Account) Summary() Summary {
	return Summary{
		ID:       a.ID.Hex(),
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}
