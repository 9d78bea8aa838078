package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Account agrupa un usuario con su perfil en una misma lectura consistente.
type Account struct {
	User    User    `json:"user"`
	Profile Profile `json:"profile"`
}

// Visible indica si el perfil puede mostrarse publicamente.
// Se deriva siempre, nunca se persiste.
func (a Account) Visible() bool {
	return a.Profile.IsPublished && a.User.IsActive
}
