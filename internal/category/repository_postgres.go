package category

import (
	"context"
	"database/sql"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

// Repository provides access to the item groups of the catalog.
type Repository interface {
	List(ctx context.Context, limit int) ([]Group, error)
}

// PostgresRepository derives groups from products."itemGroup".
type PostgresRepository struct {
	db *sql.DB
}

const listGroupsQuery = `
	SELECT "itemGroup", COUNT(*)
	FROM products
	WHERE sell AND "itemGroup" <> ''
	GROUP BY "itemGroup"
	ORDER BY COUNT(*) DESC, "itemGroup"
	LIMIT $1
`

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx, listGroupsQuery, limit)
	if err != nil {
		return nil, apperror.Persistence("list item groups", err)
	}
	defer rows.Close()

	out := make([]Group, 0)
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Name, &g.Products); err != nil {
			return nil, apperror.Persistence("scan item group", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("list item groups", err)
	}
	return out, nil
}
