package models

import "time"

// User represents a directory user record (mapped from identity provider claims).
// CustomClaims carries coarse role flags such as "admin".
type User struct {
	ID           string                 `bson:"_id,omitempty" json:"id"`
	Sub          string                 `bson:"sub" json:"sub"` // OIDC subject
	Email        string                 `bson:"email" json:"email"`
	Name         string                 `bson:"name" json:"name"`
	PhotoURL     string                 `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	Disabled     bool                   `bson:"disabled" json:"disabled"`
	CustomClaims map[string]interface{} `bson:"customClaims,omitempty" json:"customClaims,omitempty"`
	CreatedAt    time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user carries a truthy admin custom claim.
func (u *User) IsAdmin(claim string) bool {
	if u.CustomClaims == nil {
		return false
	}
	b, ok := u.CustomClaims[claim].(bool)
	return ok && b
}
