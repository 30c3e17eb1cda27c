package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/backend-scaffold/internal/model"
	"github.com/iliyamo/backend-scaffold/internal/utils"
)

const userColumns = "id,username,email,full_name,password_hash,role,refresh_token,created_at,updated_at"

// UserRepo is the MySQL identity store over the 'users' table.
type UserRepo struct {
	DB         *sql.DB
	BcryptCost int
}

func NewUserRepo(db *sql.DB, bcryptCost int) *UserRepo {
	return &UserRepo{DB: db, BcryptCost: bcryptCost}
}

var _ UserStore = (*UserRepo)(nil)

// Create inserts user and sets its ID.  The pending password is required.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	plain, ok := u.PendingPassword()
	if !ok {
		return errors.New("create user: password not set")
	}
	u.Normalize()
	hash, err := utils.HashPassword(plain, r.BcryptCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, full_name, password_hash, role, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.Username, u.Email, u.FullName, hash, u.Role, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = strconv.FormatInt(id, 10)
	u.ApplyPasswordHash(hash)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", n))
}

// FindByUsernameOrEmail fetches a user whose username or email matches.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	username, email = model.NormalizeKey(username), model.NormalizeKey(email)
	var (
		where string
		args  []any
	)
	switch {
	case username != "" && email != "":
		where, args = "username=? OR email=?", []any{username, email}
	case username != "":
		where, args = "username=?", []any{username}
	case email != "":
		where, args = "email=?", []any{email}
	default:
		return nil, ErrNotFound
	}
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", args...))
}

// Save updates the profile fields and, only when the password was changed,
// the hash.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	id, err := strconv.ParseUint(u.ID, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	u.Normalize()
	hash := u.PasswordHash
	plain, changed := u.PendingPassword()
	if changed {
		if hash, err = utils.HashPassword(plain, r.BcryptCost); err != nil {
			return err
		}
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, email=?, full_name=?, password_hash=?, role=?, updated_at=? WHERE id=?",
		u.Username, u.Email, u.FullName, hash, u.Role, now, id)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if changed {
		u.ApplyPasswordHash(hash)
	}
	u.UpdatedAt = now
	return nil
}

// SetRefreshToken stores the refresh token reference; "" clears it.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	var v sql.NullString
	if token != "" {
		v = sql.NullString{String: token, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=? WHERE id=?", v, n)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanOne(row *sql.Row) (*model.User, error) {
	var (
		u       model.User
		id      uint64
		refresh sql.NullString
	)
	err := row.Scan(&id, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.ID = strconv.FormatUint(id, 10)
	u.RefreshToken = refresh.String
	return &u, nil
}

// isDuplicate reports a unique-key violation (MySQL 1062, or the SQLite
// wording used by the test database).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
