package model

import "time"

// User represents an application user record as stored in the `users`
// table. Any user may act as a driver on rides they post and as a
// passenger on rides posted by others; there is no account-level role.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name shown on ride listings.
//  LastName     – family name, party-visible only.
//  Phone        – contact number, party-visible only.
//  AvatarURL    – optional profile picture URL.
//  Rating       – average rating left by counterparts (0 when unrated).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	AvatarURL    *string
	Rating       float64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DriverProfile is the profile slice joined onto rides when they are
// rendered. Absence of the driver row degrades to nil profile fields on
// the ride, never to a failed row.
type DriverProfile struct {
	UserID    uint64  `json:"user_id"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Rating    float64 `json:"rating"`
}

// Public reduces the profile to the fields anyone may see.
func (p DriverProfile) Public() DriverProfile {
	return DriverProfile{UserID: p.UserID, FirstName: p.FirstName, AvatarURL: p.AvatarURL, Rating: p.Rating}
}

// Summary reduces the profile to the projection used inside search
// results: avatar and rating only.
func (p DriverProfile) Summary() DriverProfile {
	return DriverProfile{UserID: p.UserID, AvatarURL: p.AvatarURL, Rating: p.Rating}
}
