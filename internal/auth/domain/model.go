package domain

// Identity is the subject behind a verified bearer token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
