package echoapi

import (
	"time"

	"github.com/easystudy/backend/core/user"
)

// userPayload is the sanitized user projection returned to clients;
// the password hash never leaves the service layer.
type userPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	UserType  string `json:"user_type"`
}

func newUserPayload(usr user.User) userPayload {
	return userPayload{
		ID:        usr.ID,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Email:     usr.Email,
		Phone:     usr.Phone,
		UserType:  usr.Role,
	}
}

// pendingStudentPayload additionally carries the admin code so the tutor can
// match it against what the student relays.
type pendingStudentPayload struct {
	userPayload
	AdminCode string    `json:"admin_code"`
	CreatedAt time.Time `json:"created_at"`
}

func newPendingStudentPayloads(users []user.User) []pendingStudentPayload {
	payloads := make([]pendingStudentPayload, 0, len(users))
	for _, usr := range users {
		payloads = append(payloads, pendingStudentPayload{
			userPayload: newUserPayload(usr),
			AdminCode:   usr.AdminCode,
			CreatedAt:   usr.CreatedAt,
		})
	}
	return payloads
}
