package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/trading-network/internal/model"
)

// ProductRepo encapsulates all queries on the `products` table.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

var productOrderings = map[string]string{
	"release_date": "release_date",
	"name":         "name",
}

// Create inserts a product and fills in its ID.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (name, model, release_date) VALUES (?, ?, ?)", p.Name, p.Model, p.ReleaseDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, model, release_date FROM products WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Model, &p.ReleaseDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update overwrites name, model and release date.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name = ?, model = ?, release_date = ? WHERE id = ?", p.Name, p.Model, p.ReleaseDate, p.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a product; its node links go with it.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of products and the total match count.
func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		like := likePattern(s)
		where = " WHERE (name LIKE ? OR model LIKE ?)"
		args = append(args, like, like)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	out := []model.Product{}
	if total == 0 {
		return out, 0, nil
	}

	col, dir := orderingColumn(f.Ordering, productOrderings)
	if col == "" {
		col, dir = "id", "ASC"
	}
	q := fmt.Sprintf("SELECT id, name, model, release_date FROM products%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?", where, col, dir, dir)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Model, &p.ReleaseDate); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// GetMany returns the products whose ids are listed, in id order.  Missing
// ids are simply absent from the result.
func (r *ProductRepo) GetMany(ctx context.Context, ids []uint64) ([]model.Product, error) {
	out := []model.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	q := "SELECT id, name, model, release_date FROM products WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Model, &p.ReleaseDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
