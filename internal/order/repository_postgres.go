package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/cart"
	"github.com/wichananm65/park-shop-backend/internal/database"
	"github.com/wichananm65/park-shop-backend/internal/product"
)

// checkoutLockNamespace is the first key of the two-key advisory lock taken
// per user during checkout.
const checkoutLockNamespace = 7201

const headerColumns = `"orderNumber", "userId", consignee, tel, address, status, "checkTime"`

const (
	lockUserQuery     = `SELECT pg_advisory_xact_lock($1, $2)`
	keyedNumberQuery  = `SELECT "orderNumber" FROM "orderCustomers" WHERE "userId" = $1 AND "idempotencyKey" = $2`
	numberExistQuery  = `SELECT EXISTS (SELECT 1 FROM "orderCustomers" WHERE "orderNumber" = $1)`
	insertHeaderQuery = `
		INSERT INTO "orderCustomers" ("orderNumber", "userId", consignee, tel, address, status, "checkTime", "idempotencyKey")
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	insertLineQuery = `
		INSERT INTO "orderInfor" ("orderNumber", "productId", "productName", "salePrice", qty, "imgUrls")
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	getHeaderQuery   = `SELECT ` + headerColumns + ` FROM "orderCustomers" WHERE "orderNumber" = $1`
	headerByKeyQuery = `SELECT ` + headerColumns + ` FROM "orderCustomers" WHERE "userId" = $1 AND "idempotencyKey" = $2`
	listHeadersQuery = `
		SELECT ` + headerColumns + `
		FROM "orderCustomers"
		WHERE "userId" = $1
		ORDER BY "checkTime" DESC, "orderNumber" DESC
	`
	linesByNumbersQuery = `
		SELECT "orderNumber", "productId", "productName", "salePrice", qty, "imgUrls"
		FROM "orderInfor"
		WHERE "orderNumber" = ANY($1::text[])
		ORDER BY id
	`
	updateStatusQuery = `
		UPDATE "orderCustomers" SET status = $2
		WHERE "orderNumber" = $1 AND ($3 = '' OR status = $3)
	`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RunInTx(ctx context.Context, fn func(Tx) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(pgTx{tx: tx})
	})
}

type pgTx struct {
	tx *sql.Tx
}

func (t pgTx) LockUser(ctx context.Context, userID int) error {
	_, err := t.tx.ExecContext(ctx, lockUserQuery, checkoutLockNamespace, userID)
	return err
}

func (t pgTx) KeyedOrderNumber(ctx context.Context, userID int, key string) (string, error) {
	var number string
	err := t.tx.QueryRowContext(ctx, keyedNumberQuery, userID, key).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return number, err
}

func (t pgTx) CartLines(ctx context.Context, userID int) ([]cart.Line, error) {
	return cart.LockLines(ctx, t.tx, userID)
}

func (t pgTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, numberExistQuery, number).Scan(&exists)
	return exists, err
}

func (t pgTx) InsertHeader(ctx context.Context, h Header, key string) error {
	_, err := t.tx.ExecContext(ctx, insertHeaderQuery,
		h.OrderNumber, h.UserID, h.Consignee, h.Tel, h.Address, h.Status, h.CheckTime,
		sql.NullString{String: key, Valid: key != ""})
	return err
}

func (t pgTx) InsertLine(ctx context.Context, l Line) error {
	_, err := t.tx.ExecContext(ctx, insertLineQuery,
		l.OrderNumber, l.ProductID, l.ProductName, l.UnitPrice, l.Qty, product.EncodeImgURLs(l.ImgURLs))
	return err
}

func (t pgTx) ClearCart(ctx context.Context, userID int) error {
	return cart.ClearLines(ctx, t.tx, userID)
}

func (r *PostgresRepository) FindByIdempotencyKey(ctx context.Context, userID int, key string) (Order, error) {
	h, err := scanHeader(r.db.QueryRowContext(ctx, headerByKeyQuery, userID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, apperror.Persistence("find order by idempotency key", err)
	}
	return r.withLines(ctx, h)
}

func (r *PostgresRepository) Get(ctx context.Context, number string) (Order, error) {
	h, err := scanHeader(r.db.QueryRowContext(ctx, getHeaderQuery, number))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, apperror.Persistence("get order", err)
	}
	return r.withLines(ctx, h)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listHeadersQuery, userID)
	if err != nil {
		return nil, apperror.Persistence("list orders", err)
	}
	defer rows.Close()

	headers := make([]Header, 0)
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, apperror.Persistence("scan order", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("list orders", err)
	}

	numbers := make([]string, len(headers))
	for i, h := range headers {
		numbers[i] = h.OrderNumber
	}
	lines, err := r.linesFor(ctx, numbers)
	if err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(headers))
	for _, h := range headers {
		out = append(out, NewOrder(h, lines[h.OrderNumber]))
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, number, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx, updateStatusQuery, number, to, from)
	if err != nil {
		return false, apperror.Persistence("update order status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.Persistence("update order status", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) withLines(ctx context.Context, h Header) (Order, error) {
	lines, err := r.linesFor(ctx, []string{h.OrderNumber})
	if err != nil {
		return Order{}, err
	}
	return NewOrder(h, lines[h.OrderNumber]), nil
}

// linesFor loads the lines of every order in numbers with one query.
func (r *PostgresRepository) linesFor(ctx context.Context, numbers []string) (map[string][]Line, error) {
	out := make(map[string][]Line, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, linesByNumbersQuery, pq.Array(numbers))
	if err != nil {
		return nil, apperror.Persistence("load order lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l       Line
			imgURLs sql.NullString
		)
		if err := rows.Scan(&l.OrderNumber, &l.ProductID, &l.ProductName, &l.UnitPrice, &l.Qty, &imgURLs); err != nil {
			return nil, apperror.Persistence("scan order line", err)
		}
		l.ImgURLs = product.DecodeImgURLs(imgURLs.String)
		out[l.OrderNumber] = append(out[l.OrderNumber], l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("load order lines", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(s rowScanner) (Header, error) {
	var h Header
	err := s.Scan(&h.OrderNumber, &h.UserID, &h.Consignee, &h.Tel, &h.Address, &h.Status, &h.CheckTime)
	return h, err
}
