package domain

// Role of an authenticated actor.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Actor is the verified identity behind a request.
// ProviderID is set only for providers.
type Actor struct {
	UserID     int64
	Role       Role
	ProviderID int64
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsClientOf reports whether the actor booked b.
func (a Actor) IsClientOf(b *Booking) bool {
	return a.Role == RoleClient && a.UserID != 0 && b.ClientID == a.UserID
}

// IsProviderOf reports whether the actor is the provider assigned to b.
func (a Actor) IsProviderOf(b *Booking) bool {
	return a.Role == RoleProvider && a.ProviderID != 0 && b.ProviderID == a.ProviderID
}

// IsParticipantOf is IsClientOf || IsProviderOf.
func (a Actor) IsParticipantOf(b *Booking) bool {
	return a.IsClientOf(b) || a.IsProviderOf(b)
}
