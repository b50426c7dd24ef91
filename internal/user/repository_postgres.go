package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

// emailConstraint is the name Postgres gives the UNIQUE on users.email.
const emailConstraint = "users_email_key"

const (
	userColumns         = `id, email, password, name, phone, "isAdmin", "createdAt", "updatedAt"`
	listUsersQuery      = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	insertUserQuery     = `
		INSERT INTO users (email, password, name, phone, "isAdmin")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	updateProfileQuery = `
		UPDATE users
		SET name = $2,
			phone = $3,
			"updatedAt" = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, apperror.Persistence("list users", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperror.Persistence("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("list users", err)
	}
	return users, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (User, error) {
	return r.one(ctx, "get user", getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.one(ctx, "get user by email", getUserByEmailQuery, email)
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	created, err := scanUser(r.db.QueryRowContext(ctx, insertUserQuery,
		user.Email, user.Password, user.Name, user.Phone, user.IsAdmin))
	if database.IsUniqueViolation(err, emailConstraint) {
		return User{}, ErrEmailExists
	}
	if err != nil {
		return User{}, apperror.Persistence("create user", err)
	}
	return created, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int, name, phone string) (User, error) {
	return r.one(ctx, "update user", updateProfileQuery, id, name, phone)
}

func (r *PostgresRepository) one(ctx context.Context, op, q string, args ...any) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, apperror.Persistence(op, err)
	}
	return user, nil
}

func scanUser(s rowScanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Phone, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
