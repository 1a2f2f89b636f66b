package domain

import "time"

// SSOTicket is a short-lived single-use handoff credential minted for a
// trusted relying party. The JTI doubles as the primary key so a ticket can
// never be redeemed twice.
type SSOTicket struct {
	JTI       string
	Audience  string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time // nil until redeemed
	CreatedAt time.Time
}

// Expired reports whether the ticket's redemption window has closed at t.
func (tk SSOTicket) Expired(t time.Time) bool {
	return !t.Before(tk.ExpiresAt)
}

// Used reports whether the ticket has already been redeemed.
func (tk SSOTicket) Used() bool {
	return tk.UsedAt != nil
}
