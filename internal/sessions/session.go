package sessions

import "time"

// Session is a provider-style session cookie record. The ID doubles as the
// cookie value handed to the browser.
type Session struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Sub       string    `bson:"sub" json:"sub"`
	Admin     bool      `bson:"admin" json:"admin"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
