package address

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	addressColumns     = `id, "userId", consignee, tel, address, "createdAt", "updatedAt"`
	listAddressesQuery = `SELECT ` + addressColumns + ` FROM address WHERE "userId" = $1 ORDER BY id`
	getAddressQuery    = `SELECT ` + addressColumns + ` FROM address WHERE "userId" = $1 AND id = $2`
	insertAddressQuery = `
		INSERT INTO address ("userId", consignee, tel, address)
		VALUES ($1,$2,$3,$4)
		RETURNING ` + addressColumns
	updateAddressQuery = `
		UPDATE address
		SET consignee = $3, tel = $4, address = $5, "updatedAt" = NOW()
		WHERE "userId" = $1 AND id = $2
		RETURNING ` + addressColumns
	deleteAddressQuery = `DELETE FROM address WHERE "userId" = $1 AND id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID int) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx, listAddressesQuery, userID)
	if err != nil {
		return nil, apperror.Persistence("list addresses", err)
	}
	defer rows.Close()

	out := make([]Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, apperror.Persistence("scan address", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("list addresses", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, addressID int) (Address, error) {
	return r.one(ctx, "get address", getAddressQuery, userID, addressID)
}

func (r *PostgresRepository) Add(ctx context.Context, userID int, f Fields) (Address, error) {
	return r.one(ctx, "add address", insertAddressQuery, userID, f.Consignee, f.Tel, f.Address)
}

func (r *PostgresRepository) Update(ctx context.Context, userID, addressID int, f Fields) (Address, error) {
	return r.one(ctx, "update address", updateAddressQuery, userID, addressID, f.Consignee, f.Tel, f.Address)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, addressID int) error {
	res, err := r.db.ExecContext(ctx, deleteAddressQuery, userID, addressID)
	if err != nil {
		return apperror.Persistence("delete address", err)
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return apperror.Persistence("delete address", err)
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, op, q string, args ...any) (Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	if err != nil {
		return Address{}, apperror.Persistence(op, err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(s rowScanner) (Address, error) {
	var a Address
	err := s.Scan(&a.AddressID, &a.UserID, &a.Consignee, &a.Tel, &a.Address, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
