package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

const productColumns = `id, "itemGroup", title, content, price, "salePrice", "imgUrls", sell, "editTime", "createdAt"`

const (
	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY id
	`
	getProductByIDQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
	`
	insertProductQuery = `
		INSERT INTO products ("itemGroup", title, content, price, "salePrice", "imgUrls", sell, "editTime", "createdAt")
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		RETURNING ` + productColumns
	deleteProductQuery = `DELETE FROM products WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, apperror.Persistence("list products", err)
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperror.Persistence("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("list products", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, apperror.Persistence("get product", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	row := r.db.QueryRowContext(ctx, insertProductQuery,
		p.ItemGroup, p.Title, p.Content, p.Price, p.SalePrice, EncodeImgURLs(p.ImgURLs), p.Sell, r.now().UTC())
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, apperror.Persistence("insert product", err)
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int, patch Patch) (Product, error) {
	set, args := buildPatch(patch, r.now().UTC())
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`, set, len(args), productColumns)

	p, err := scanProduct(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, apperror.Persistence("update product", err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return apperror.Persistence("delete product", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// buildPatch renders the SET clause for the populated fields of p, always in
// column order, followed by "editTime". Placeholders start at $1.
func buildPatch(p Patch, now time.Time) (string, []any) {
	var (
		parts []string
		args  []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		parts = append(parts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.ItemGroup != nil {
		add(`"itemGroup"`, *p.ItemGroup)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Content != nil {
		add("content", *p.Content)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.SalePrice != nil {
		add(`"salePrice"`, *p.SalePrice)
	}
	if p.ImgURLs != nil {
		add(`"imgUrls"`, EncodeImgURLs(*p.ImgURLs))
	}
	if p.Sell != nil {
		add("sell", *p.Sell)
	}
	add(`"editTime"`, now)

	return strings.Join(parts, ", "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(scanner rowScanner) (Product, error) {
	var (
		p       Product
		imgURLs sql.NullString
	)
	if err := scanner.Scan(
		&p.ID,
		&p.ItemGroup,
		&p.Title,
		&p.Content,
		&p.Price,
		&p.SalePrice,
		&imgURLs,
		&p.Sell,
		&p.EditTime,
		&p.CreatedAt,
	); err != nil {
		return Product{}, err
	}
	p.ImgURLs = DecodeImgURLs(imgURLs.String)
	return p, nil
}
