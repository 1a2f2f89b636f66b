package domain

import "time"

type User struct {
	ID              string
	Email           string
	PasswordHash    string // argon2 encoded
	FullName        string
	Phone           string
	EmailVerifiedAt *time.Time // nil until the address is confirmed
	Roles           []string
	Profile         Profile
	CoTravellers    []CoTraveller
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile holds optional traveller details used to prefill bookings.
type Profile struct {
	Title       string `json:"title,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Gender      string `json:"gender,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	PassportNo  string `json:"passport_no,omitempty"`
	PassportExp string `json:"passport_exp,omitempty"` // YYYY-MM-DD
}

// CoTraveller is a saved companion a user frequently books for.
type CoTraveller struct {
	Title       string `json:"title,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	PassportNo  string `json:"passport_no,omitempty"`
	PassportExp string `json:"passport_exp,omitempty"`
}

// HasRole reports whether the user carries the named role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
