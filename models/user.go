package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role is the account role copied onto fish records at submission time.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePartner   Role = "partner"
	RoleDeveloper Role = "developer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePartner, RoleDeveloper:
		return true
	}
	return false
}

// User mirrors documents in the "users" collection. Accounts are created and
// deactivated by the auth service; this API only reads them.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"  json:"id"`
	Mail         string             `bson:"mail"           json:"mail"`
	PasswordHash string             `bson:"password_hash"  json:"-"`
	Role         Role               `bson:"role"           json:"role"`
	FirstName    string             `bson:"first_name"     json:"first_name,omitempty"`
	LastName     string             `bson:"last_name"      json:"last_name,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsActive     bool               `bson:"is_active"      json:"is_active"`
}

// UserSummary is the public projection embedded in hydrated fish records.
type UserSummary struct {
	ID        primitive.ObjectID `json:"id"`
	FirstName string             `json:"first_name,omitempty"`
	LastName  string             `json:"last_name,omitempty"`
	Mail      string             `json:"mail"`
	Role      Role               `json:"role"`
}

func (u User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Mail: u.Mail, Role: u.Role}
}
