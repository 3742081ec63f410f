package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
	emailsvc "github.com/easystudy/backend/services/email"
	dummydb "github.com/easystudy/backend/storage/database/dummy"
)

var ctx = context.Background()

func newTestService(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()

	conf := &core.Config{
		AppName:         "EasyStudy",
		TestMode:        true,
		FrontendBaseURL: "http://localhost:3000",
	}
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	return user.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf), repo
}

func newUser(role string) user.NewUser {
	return user.NewUser{
		FirstName: "Awa",
		LastName:  "Lot",
		Email:     "awa@test.cd",
		Phone:     "+243 970 000 000",
		Password:  "LeSecret!",
		UserType:  role,
	}
}

func TestService_Register(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("student starts pending with an admin code", func(t *testing.T) {
		usr, err := svc.Register(ctx, newUser(user.RoleStudent))
		require.NoError(t, err)
		assert.NotEmpty(t, usr.ID)
		assert.False(t, usr.IsActive)
		assert.Regexp(t, user.AdminCodeRegex, usr.AdminCode)
		assert.NoError(t, usr.CheckPassword("LeSecret!"))
		assert.Error(t, usr.CheckPassword("NotTheSecret"))
	})

	t.Run("tutor is active right away", func(t *testing.T) {
		nu := newUser(user.RoleTutor)
		nu.Email = "tutor@test.cd"
		usr, err := svc.Register(ctx, nu)
		require.NoError(t, err)
		assert.True(t, usr.IsActive)
		assert.Empty(t, usr.AdminCode)
	})

	t.Run("duplicate email is rejected, first account untouched", func(t *testing.T) {
		first, err := svc.GetByEmail(ctx, "awa@test.cd")
		require.NoError(t, err)

		dup := newUser(user.RoleTutor)
		dup.FirstName = "Imposter"
		_, err = svc.Register(ctx, dup)
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

		again, err := svc.GetByEmail(ctx, "awa@test.cd")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := newTestService(t)

	student, err := svc.Register(ctx, newUser(user.RoleStudent))
	require.NoError(t, err)

	nu := newUser(user.RoleTutor)
	nu.Email = "tutor@test.cd"
	_, err = svc.Register(ctx, nu)
	require.NoError(t, err)

	tests := []struct {
		name    string
		creds   user.Credentials
		wantErr error
	}{
		{name: "unknown email", creds: user.Credentials{Email: "nope@test.cd", Password: "LeSecret!"}, wantErr: user.ErrNotFound},
		{name: "wrong password", creds: user.Credentials{Email: "tutor@test.cd", Password: "NotTheSecret"}, wantErr: user.ErrInvalidCredentials},
		{name: "user type mismatch", creds: user.Credentials{Email: "tutor@test.cd", Password: "LeSecret!", UserType: user.RoleStudent}, wantErr: user.ErrUserTypeMismatch},
		{name: "pending student", creds: user.Credentials{Email: "awa@test.cd", Password: "LeSecret!"}, wantErr: user.ErrAccountInactive},
		{name: "ok", creds: user.Credentials{Email: "tutor@test.cd", Password: "LeSecret!", UserType: user.RoleTutor}},
		{name: "email is case-insensitive", creds: user.Credentials{Email: "TUTOR@Test.CD", Password: "LeSecret!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}

	t.Run("approved student can log in", func(t *testing.T) {
		_, err := svc.Approve(ctx, student.ID)
		require.NoError(t, err)

		usr, err := svc.Authenticate(ctx, user.Credentials{Email: "awa@test.cd", Password: "LeSecret!", UserType: user.RoleStudent})
		require.NoError(t, err)
		assert.True(t, usr.IsActive)
	})
}

func TestService_Approve(t *testing.T) {
	svc, _ := newTestService(t)

	student, err := svc.Register(ctx, newUser(user.RoleStudent))
	require.NoError(t, err)

	nu := newUser(user.RoleTutor)
	nu.Email = "tutor@test.cd"
	tutor, err := svc.Register(ctx, nu)
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Approve(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("tutor cannot be approved", func(t *testing.T) {
		_, err := svc.Approve(ctx, tutor.ID)
		assert.Equal(t, user.ErrInvalidTransition, errors.Cause(err))
	})

	t.Run("pending student is activated and notified", func(t *testing.T) {
		emailsvc.SentMessages = nil

		usr, err := svc.Approve(ctx, student.ID)
		require.NoError(t, err)
		assert.True(t, usr.IsActive)

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, student.Email, emailsvc.SentMessages[0].To[0].Address)
	})

	t.Run("double approval conflicts", func(t *testing.T) {
		_, err := svc.Approve(ctx, student.ID)
		assert.Equal(t, user.ErrInvalidTransition, errors.Cause(err))
	})
}

func TestService_Reject(t *testing.T) {
	svc, _ := newTestService(t)

	student, err := svc.Register(ctx, newUser(user.RoleStudent))
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		err := svc.Reject(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("pending student is removed", func(t *testing.T) {
		require.NoError(t, svc.Reject(ctx, student.ID))

		_, err := svc.GetByID(ctx, student.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("approve after reject is a miss", func(t *testing.T) {
		_, err := svc.Approve(ctx, student.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("reject after approve conflicts", func(t *testing.T) {
		other := newUser(user.RoleStudent)
		other.Email = "other@test.cd"
		usr, err := svc.Register(ctx, other)
		require.NoError(t, err)

		_, err = svc.Approve(ctx, usr.ID)
		require.NoError(t, err)

		err = svc.Reject(ctx, usr.ID)
		assert.Equal(t, user.ErrInvalidTransition, errors.Cause(err))
	})
}

func TestService_QueryPendingStudents(t *testing.T) {
	svc, _ := newTestService(t)

	emails := []string{"a@test.cd", "b@test.cd", "c@test.cd"}
	for _, email := range emails {
		nu := newUser(user.RoleStudent)
		nu.Email = email
		_, err := svc.Register(ctx, nu)
		require.NoError(t, err)
	}
	nu := newUser(user.RoleTutor)
	nu.Email = "tutor@test.cd"
	_, err := svc.Register(ctx, nu)
	require.NoError(t, err)

	pending, err := svc.QueryPendingStudents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, len(emails))
	for _, usr := range pending {
		assert.True(t, usr.IsStudent())
		assert.False(t, usr.IsActive)
	}

	first, err := svc.GetByEmail(ctx, "a@test.cd")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	pending, err = svc.QueryPendingStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, len(emails)-1)
}

func TestService_ResetPassword(t *testing.T) {
	svc, _ := newTestService(t)

	nu := newUser(user.RoleTutor)
	usr, err := svc.Register(ctx, nu)
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, "nope@test.cd", "UnAutreSecret!")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	require.NoError(t, svc.ResetPassword(ctx, usr.Email, "UnAutreSecret!"))

	refreshed, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("UnAutreSecret!"))
	assert.Error(t, refreshed.CheckPassword("LeSecret!"))
}
