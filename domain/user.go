package domain

import "time"

type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	ProfilePic   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is what other participants and the REST surface may see.
type PublicUser struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
	}
}
