package domain

import "time"

// Account is a login known to the development auth stub.
type Account struct {
	ID            int64
	Login         string
	FullName      string
	PersonID      int64
	InstitutionID int64
	PasswordHash  string
	Roles         []string
	Active        bool
	CreatedAt     time.Time
}
