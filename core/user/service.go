package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/easystudy/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserTypeMismatch   = errors.New("invalid credentials or user type")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidTransition  = errors.New("account is not awaiting approval")
)

type (
	Repository interface {
		// CreateUser persists a new user. Email uniqueness is enforced by the
		// store; a duplicate insert fails with ErrEmailExists.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryPendingStudents returns inactive students, newest first.
		QueryPendingStudents(ctx context.Context) ([]User, error)
		// ActivateUser flips is_active on a pending student, conditionally on
		// its current state: ErrNotFound if the row is absent,
		// ErrInvalidTransition if it is not a pending student.
		ActivateUser(ctx context.Context, id string) (User, error)
		// DeleteUser removes a pending student, with the same conditional
		// semantics as ActivateUser.
		DeleteUser(ctx context.Context, id string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		UpdatePassword(ctx context.Context, id string, hash []byte) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Register creates a new account. Tutors are active right away; students
// start out pending with a fresh admin code and must be approved by a tutor
// before they can log in.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Phone:     nu.Phone,
		Role:      nu.UserType,
		IsActive:  nu.UserType != RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Role == RoleStudent {
		usr.AdminCode = generateAdminCode()
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the provided credentials in a fixed order:
// lookup by email, password, user type (when provided), active flag.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(creds.Email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, err
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if creds.UserType != "" && usr.Role != creds.UserType {
		return User{}, ErrUserTypeMismatch
	}
	if !usr.IsActive {
		return User{}, ErrAccountInactive
	}

	usr, err = svc.repo.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryPendingStudents(ctx context.Context) ([]User, error) {
	return svc.repo.QueryPendingStudents(ctx)
}

// Approve transitions a pending student account to active and lets the
// student know by email. Only one of two concurrent approvals can win; the
// loser observes ErrInvalidTransition from the store.
func (svc *Service) Approve(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.ActivateUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: "Your account has been approved",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s account has been approved. You can now log in at %s/login.\n",
			usr.FirstName, svc.conf.AppName, svc.conf.FrontendBaseURL,
		),
	})
	return usr, nil
}

// Reject deletes a pending student account.
func (svc *Service) Reject(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

// ResetPassword replaces a user's password; admin CLI only.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdatePassword(ctx, usr.ID, usr.PasswordHash)
}
