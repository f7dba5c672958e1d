package auth

import "errors"

// ErrInvalidCredentials is returned for both an unknown username and a
// wrong password, so the error text does not reveal which usernames
// exist. An unknown username returns before any bcrypt comparison, so
// response timing still differs between the two cases.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

type Authenticator struct {
	store Store
}

func NewAuthenticator(store Store) *Authenticator {
	return &Authenticator{store: store}
}

func (a *Authenticator) Authenticate(username, password string) (*User, error) {
	u, err := a.store.GetUser(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (u *User) IsSuperuser() bool {
	return u.Role == RoleSuperuser
}

func (u *User) IsGuest() bool {
	return u.Role == RoleGuest
}

func (u *User) CanOpenDB(db string) bool {
	if u.IsSuperuser() {
		return true
	}

	for _, name := range u.AccessDB {
		if name == db {
			return true
		}
	}
	return false
}
