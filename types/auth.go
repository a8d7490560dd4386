package types

// AuthResponse is returned by registration, login and profile updates.
// Token is empty unless a session was established.
type AuthResponse struct {
	Token      string     `json:"token"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Profession Profession `json:"profession"`
}

// NewAuthResponse builds a response from the local profile snapshot.
func NewAuthResponse(account Account, token string) AuthResponse {
	return AuthResponse{
		Token:      token,
		FirstName:  account.FirstName,
		LastName:   account.LastName,
		Email:      account.Email,
		Role:       account.Role,
		Profession: account.Profession,
	}
}
