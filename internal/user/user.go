package user

import "time"

type User struct {
	ID        int       `json:"userId"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is the result of a successful sign-in.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func sanitizeUser(u User) User {
	u.Password = ""
	return u
}
