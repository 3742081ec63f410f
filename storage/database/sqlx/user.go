package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/easystudy/backend/core/user"
)

// pq unique_violation
const uniqueViolation = "23505"

type userRow struct {
	ID           string      `db:"id"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	Email        string      `db:"email"`
	Phone        string      `db:"phone"`
	UserType     string      `db:"user_type"`
	IsActive     bool        `db:"is_active"`
	AdminCode    null.String `db:"admin_code"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		Role:         r.UserType,
		IsActive:     r.IsActive,
		AdminCode:    r.AdminCode.String,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func pack(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		Phone:        usr.Phone,
		UserType:     usr.Role,
		IsActive:     usr.IsActive,
		AdminCode:    null.NewString(usr.AdminCode, usr.AdminCode != ""),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// validID reports whether id can be a row id. Postgres rejects non-uuid
// values with a syntax error; treat them as misses instead.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := pack(usr)

	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, first_name, last_name, email, phone, user_type, is_active, admin_code, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :first_name, :last_name, :email, :phone, :user_type, :is_active, :admin_code, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		// the unique index on email is the authoritative duplicate check
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by id")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) QueryPendingStudents(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM "user"
		WHERE user_type = $1 AND NOT is_active
		ORDER BY created_at DESC`,
		user.RoleStudent,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying pending students")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

// ActivateUser approves a pending student. The state check lives in the
// UPDATE's WHERE clause so concurrent approvals serialize on the row: only
// one caller sees it flip.
func (repo userRepository) ActivateUser(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE "user" SET is_active = true, updated_at = $2
		WHERE id = $1 AND user_type = $3 AND NOT is_active
		RETURNING *`,
		id, time.Now().UTC(), user.RoleStudent,
	).StructScan(&row)
	if err == sql.ErrNoRows {
		return user.User{}, repo.trapConditionalMiss(ctx, id)
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "activating user")
	}
	return row.unpack(), nil
}

// DeleteUser rejects a pending student; same conditional semantics as ActivateUser.
func (repo userRepository) DeleteUser(ctx context.Context, id string) error {
	if !validID(id) {
		return user.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx, `
		DELETE FROM "user"
		WHERE id = $1 AND user_type = $2 AND NOT is_active`,
		id, user.RoleStudent,
	)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n == 0 {
		return repo.trapConditionalMiss(ctx, id)
	}
	return nil
}

// trapConditionalMiss tells a missing row apart from one in the wrong state.
func (repo userRepository) trapConditionalMiss(ctx context.Context, id string) error {
	if _, err := repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return user.ErrInvalidTransition
}

func (repo userRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	if !validID(id) {
		return user.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx,
		`UPDATE "user" SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.QueryRowxContext(ctx,
		`UPDATE "user" SET last_login = $2 WHERE id = $1 RETURNING *`,
		usr.ID, time.Now().UTC(),
	).StructScan(&row)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "setting last login")
	}
	return row.unpack(), nil
}
