package cart

import (
	"context"
	"database/sql"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/database"
	"github.com/wichananm65/park-shop-backend/internal/product"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery = `
		SELECT c.id, c."userId", c."productId", p.title, p.price, p."salePrice", c.qty, p."imgUrls"
		FROM cart c
		JOIN products p ON p.id = c."productId"
		WHERE c."userId" = $1
		ORDER BY c.id
	`
	lockCartQuery   = getCartQuery + ` FOR UPDATE OF c`
	upsertLineQuery = `
		INSERT INTO cart ("userId", "productId", qty)
		VALUES ($1, $2, $3)
		ON CONFLICT ("userId", "productId") DO UPDATE SET qty = cart.qty + EXCLUDED.qty
	`
	setQuantityQuery = `UPDATE cart SET qty = $3 WHERE "userId" = $1 AND "productId" = $2`
	removeLineQuery  = `DELETE FROM cart WHERE "userId" = $1 AND "productId" = $2`
	clearCartQuery   = `DELETE FROM cart WHERE "userId" = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetCart(ctx context.Context, userID int) ([]Line, error) {
	lines, err := queryLines(ctx, r.db, getCartQuery, userID)
	if err != nil {
		return nil, apperror.Persistence("load cart", err)
	}
	return lines, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID, productID, qty int) error {
	if _, err := r.db.ExecContext(ctx, upsertLineQuery, userID, productID, qty); err != nil {
		return apperror.Persistence("add cart item", err)
	}
	return nil
}

func (r *PostgresRepository) SetQuantity(ctx context.Context, userID, productID, qty int) error {
	return r.execOne(ctx, "update cart item", setQuantityQuery, userID, productID, qty)
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID int) error {
	return r.execOne(ctx, "remove cart item", removeLineQuery, userID, productID)
}

func (r *PostgresRepository) Clear(ctx context.Context, userID int) error {
	if err := ClearLines(ctx, r.db, userID); err != nil {
		return apperror.Persistence("clear cart", err)
	}
	return nil
}

func (r *PostgresRepository) execOne(ctx context.Context, op, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return apperror.Persistence(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Persistence(op, err)
	}
	if n == 0 {
		return ErrLineNotFound
	}
	return nil
}

// LockLines reads the user's cart and locks its rows until q's transaction
// ends. Errors are returned unwrapped for the caller to classify.
func LockLines(ctx context.Context, q database.Querier, userID int) ([]Line, error) {
	return queryLines(ctx, q, lockCartQuery, userID)
}

// ClearLines deletes every cart line of userID.
func ClearLines(ctx context.Context, q database.Querier, userID int) error {
	_, err := q.ExecContext(ctx, clearCartQuery, userID)
	return err
}

func queryLines(ctx context.Context, q database.Querier, query string, userID int) ([]Line, error) {
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Line, 0)
	for rows.Next() {
		var (
			l       Line
			imgURLs sql.NullString
		)
		if err := rows.Scan(&l.CartID, &l.UserID, &l.ProductID, &l.Title, &l.Price, &l.SalePrice, &l.Qty, &imgURLs); err != nil {
			return nil, err
		}
		l.ImgURLs = product.DecodeImgURLs(imgURLs.String)
		out = append(out, l)
	}
	return out, rows.Err()
}
