package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/easystudy/backend/core"
)

// User types
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

var AllRoles = []string{RoleStudent, RoleTutor}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         string    `json:"user_type"`
	IsActive     bool      `json:"is_active"`
	AdminCode    string    `json:"admin_code,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

func (u *User) IsTutor() bool {
	return u.Role == RoleTutor
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	UserType  string `json:"user_type" validate:"omitempty,userrole"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.UserType = core.CleanString(nu.UserType, true /* lower */)
	if nu.UserType == "" {
		nu.UserType = RoleStudent
	}
	return validate.Struct(nu)
}

// Credentials is the login payload. UserType, when provided, must match the
// stored user type; the front end sends it to scope logins per portal.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"user_type" validate:"omitempty,userrole"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.UserType = core.CleanString(c.UserType, true /* lower */)
	return validate.Struct(c)
}
