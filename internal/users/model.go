package users

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an application account. Non-admin users see only the loans listed
// in LoanAccess.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	FullName     string    `bson:"fullName" json:"fullName"`
	Role         string    `bson:"role" json:"role"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	LoanAccess   []string  `bson:"loanAccess,omitempty" json:"loanAccess,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasLoanAccess reports whether the user may touch the loan. Admins always
// may.
func (u User) HasLoanAccess(loanID string) bool {
	if u.IsAdmin() {
		return true
	}
	for _, id := range u.LoanAccess {
		if id == loanID {
			return true
		}
	}
	return false
}
