package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/trading-network/internal/model"
)

// NodeRepo encapsulates all queries on `network_nodes` and the
// `network_node_products` link table.
type NodeRepo struct {
	db *sql.DB
}

func NewNodeRepo(db *sql.DB) *NodeRepo {
	return &NodeRepo{db: db}
}

const nodeColumns = `n.id, n.name, n.level, n.email, n.country, n.city, n.street, n.house_number,
	n.supplier_id, s.name, n.debt, n.created_at`

// nodeOrderings whitelists the ordering keys accepted from clients.
var nodeOrderings = map[string]string{
	"created_at": "n.created_at",
	"debt":       "n.debt",
	"name":       "n.name",
}

// DefaultNodeOrdering lists newest nodes first.
const DefaultNodeOrdering = "-created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(rs rowScanner) (*model.NetworkNode, error) {
	var (
		n            model.NetworkNode
		supplierID   sql.NullInt64
		supplierName sql.NullString
	)
	if err := rs.Scan(&n.ID, &n.Name, &n.Level, &n.Email, &n.Country, &n.City, &n.Street, &n.HouseNumber,
		&supplierID, &supplierName, &n.Debt, &n.CreatedAt); err != nil {
		return nil, err
	}
	if supplierID.Valid {
		id := uint64(supplierID.Int64)
		n.SupplierID = &id
	}
	if supplierName.Valid {
		name := supplierName.String
		n.SupplierName = &name
	}
	n.LevelDisplay = model.LevelLabel(n.Level)
	n.Products = []model.Product{}
	return &n, nil
}

// Create inserts the node and its product links in one transaction.  The
// debt column is left at its zero default.  On success ID, CreatedAt and
// Debt are populated from the stored row.
func (r *NodeRepo) Create(ctx context.Context, n *model.NetworkNode) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockSupplierChain(ctx, tx, 0, n.SupplierID, n.Level); err != nil {
		return err
	}
	const qInsert = `INSERT INTO network_nodes (name, level, email, country, city, street, house_number, supplier_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qInsert, n.Name, n.Level, n.Email, n.Country, n.City, n.Street, n.HouseNumber, nullableID(n.SupplierID))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)

	if err = replaceProducts(ctx, tx, n.ID, n.ProductIDs()); err != nil {
		return err
	}
	const qSelect = "SELECT debt, created_at FROM network_nodes WHERE id = ?"
	if err = tx.QueryRowContext(ctx, qSelect, n.ID).Scan(&n.Debt, &n.CreatedAt); err != nil {
		return err
	}
	n.LevelDisplay = model.LevelLabel(n.Level)
	return tx.Commit()
}

// GetByID fetches a node with its supplier name and products.
func (r *NodeRepo) GetByID(ctx context.Context, id uint64) (*model.NetworkNode, error) {
	q := "SELECT " + nodeColumns + `
		FROM network_nodes n LEFT JOIN network_nodes s ON s.id = n.supplier_id
		WHERE n.id = ?`
	n, err := scanNode(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	byNode, err := r.productsFor(ctx, []uint64{n.ID})
	if err != nil {
		return nil, err
	}
	if ps, ok := byNode[n.ID]; ok {
		n.Products = ps
	}
	return n, nil
}

// GetRef fetches the hierarchy fields of a node.
func (r *NodeRepo) GetRef(ctx context.Context, id uint64) (model.NodeRef, error) {
	var (
		ref        model.NodeRef
		supplierID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, "SELECT id, level, supplier_id FROM network_nodes WHERE id = ?", id).
		Scan(&ref.ID, &ref.Level, &supplierID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NodeRef{}, ErrNotFound
		}
		return model.NodeRef{}, err
	}
	if supplierID.Valid {
		s := uint64(supplierID.Int64)
		ref.SupplierID = &s
	}
	return ref, nil
}

// ListChildren returns the nodes supplied directly by supplierID.
func (r *NodeRepo) ListChildren(ctx context.Context, supplierID uint64) ([]model.NodeRef, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, level FROM network_nodes WHERE supplier_id = ? ORDER BY id", supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NodeRef
	for rows.Next() {
		ref := model.NodeRef{SupplierID: &supplierID}
		if err := rows.Scan(&ref.ID, &ref.Level); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Update writes every client-editable column of n, replaces its product
// links and applies the descendant level changes, all in one transaction.
// Debt is never part of the statement.
func (r *NodeRepo) Update(ctx context.Context, n *model.NetworkNode, relevel []model.LevelChange) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockSupplierChain(ctx, tx, n.ID, n.SupplierID, n.Level); err != nil {
		return err
	}
	const q = `UPDATE network_nodes
		SET name = ?, level = ?, email = ?, country = ?, city = ?, street = ?, house_number = ?, supplier_id = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, n.Name, n.Level, n.Email, n.Country, n.City, n.Street, n.HouseNumber, nullableID(n.SupplierID), n.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// MySQL reports zero affected rows for unchanged values, so confirm
		// the row exists before giving up.
		var one int
		if err = tx.QueryRowContext(ctx, "SELECT 1 FROM network_nodes WHERE id = ?", n.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrNotFound
			}
			return err
		}
	}
	if err = replaceProducts(ctx, tx, n.ID, n.ProductIDs()); err != nil {
		return err
	}
	if err = applyLevels(ctx, tx, relevel); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a node.  Its direct children are detached (supplier set
// to NULL) rather than deleted, and relevel carries the new levels of the
// detached subtrees.
func (r *NodeRepo) Delete(ctx context.Context, id uint64, relevel []model.LevelChange) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "UPDATE network_nodes SET supplier_id = NULL WHERE supplier_id = ?", id); err != nil {
		return err
	}
	if err = applyLevels(ctx, tx, relevel); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM network_node_products WHERE node_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM network_nodes WHERE id = ?", id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = ErrNotFound
		return err
	}
	return tx.Commit()
}

// List returns one page of nodes matching f and the total match count.
func (r *NodeRepo) List(ctx context.Context, f model.NodeFilter) ([]model.NetworkNode, int, error) {
	if f.Scope.None {
		return []model.NetworkNode{}, 0, nil
	}
	where, args := nodeWhere(f)

	var total int
	qCount := "SELECT COUNT(*) FROM network_nodes n" + where
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.NetworkNode{}, 0, nil
	}

	q := "SELECT " + nodeColumns + `
		FROM network_nodes n LEFT JOIN network_nodes s ON s.id = n.supplier_id` + where +
		" ORDER BY " + nodeOrderBy(f.Ordering) + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.NetworkNode{}
	ids := []uint64{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	byNode, err := r.productsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		if ps, ok := byNode[out[i].ID]; ok {
			out[i].Products = ps
		}
	}
	return out, total, nil
}

// ClearDebt zeroes the debt of the given nodes and returns how many rows
// were touched.
func (r *NodeRepo) ClearDebt(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := "UPDATE network_nodes SET debt = 0 WHERE id IN (" + placeholders(len(ids)) + ")"
	res, err := r.db.ExecContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetDebt stores an absolute debt value.  It backs the administrative
// fixture loader; the HTTP API has no path to it.
func (r *NodeRepo) SetDebt(ctx context.Context, id uint64, debt decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, "UPDATE network_nodes SET debt = ? WHERE id = ?", debt.StringFixed(2), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nodeWhere(f model.NodeFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.Scope.All {
		conds = append(conds, "n.id = ?")
		args = append(args, f.Scope.NodeID)
	}
	if c := strings.TrimSpace(f.Country); c != "" {
		conds = append(conds, "LOWER(n.country) = LOWER(?)")
		args = append(args, c)
	}
	if c := strings.TrimSpace(f.City); c != "" {
		conds = append(conds, "LOWER(n.city) = LOWER(?)")
		args = append(args, c)
	}
	if f.Level != nil {
		conds = append(conds, "n.level = ?")
		args = append(args, *f.Level)
	}
	if p := strings.TrimSpace(f.ProductName); p != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM network_node_products np JOIN products p ON p.id = np.product_id
			WHERE np.node_id = n.id AND p.name LIKE ?)`)
		args = append(args, likePattern(p))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := likePattern(s)
		conds = append(conds, `(n.name LIKE ? OR n.country LIKE ? OR n.city LIKE ? OR EXISTS (
			SELECT 1 FROM network_node_products np JOIN products p ON p.id = np.product_id
			WHERE np.node_id = n.id AND p.name LIKE ?))`)
		args = append(args, like, like, like, like)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nodeOrderBy(ordering string) string {
	col, dir := orderingColumn(ordering, nodeOrderings)
	if col == "" {
		col, dir = orderingColumn(DefaultNodeOrdering, nodeOrderings)
	}
	return fmt.Sprintf("%s %s, n.id %s", col, dir, dir)
}

// productsFor loads the products of several nodes with a single query.
func (r *NodeRepo) productsFor(ctx context.Context, nodeIDs []uint64) (map[uint64][]model.Product, error) {
	out := make(map[uint64][]model.Product, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return out, nil
	}
	q := `SELECT np.node_id, p.id, p.name, p.model, p.release_date
		FROM network_node_products np JOIN products p ON p.id = np.product_id
		WHERE np.node_id IN (` + placeholders(len(nodeIDs)) + `) ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, q, idArgs(nodeIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			nodeID uint64
			p      model.Product
		)
		if err := rows.Scan(&nodeID, &p.ID, &p.Name, &p.Model, &p.ReleaseDate); err != nil {
			return nil, err
		}
		out[nodeID] = append(out[nodeID], p)
	}
	return out, rows.Err()
}

func replaceProducts(ctx context.Context, tx *sql.Tx, nodeID uint64, productIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM network_node_products WHERE node_id = ?", nodeID); err != nil {
		return err
	}
	for _, pid := range productIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO network_node_products (node_id, product_id) VALUES (?, ?)", nodeID, pid); err != nil {
			return err
		}
	}
	return nil
}

// lockSupplierChain locks every node from supplierID up to its factory for
// the rest of the transaction and confirms the chain still matches what the
// caller validated: the supplier sits exactly one level above level and the
// chain never reaches nodeID.
func lockSupplierChain(ctx context.Context, tx *sql.Tx, nodeID uint64, supplierID *uint64, level int) error {
	if supplierID == nil {
		return nil
	}
	const q = "SELECT level, supplier_id FROM network_nodes WHERE id = ? FOR UPDATE"
	next := *supplierID
	for depth := 0; depth <= model.MaxLevel+1; depth++ {
		if next == nodeID {
			return ErrHierarchyChanged
		}
		var (
			lvl    int
			parent sql.NullInt64
		)
		if err := tx.QueryRowContext(ctx, q, next).Scan(&lvl, &parent); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrHierarchyChanged
			}
			return err
		}
		if depth == 0 && (lvl >= model.MaxLevel || lvl+1 != level) {
			return ErrHierarchyChanged
		}
		if !parent.Valid {
			return nil
		}
		next = uint64(parent.Int64)
	}
	return ErrHierarchyChanged
}

func applyLevels(ctx context.Context, tx *sql.Tx, changes []model.LevelChange) error {
	for _, ch := range changes {
		if _, err := tx.ExecContext(ctx, "UPDATE network_nodes SET level = ? WHERE id = ?", ch.Level, ch.NodeID); err != nil {
			return err
		}
	}
	return nil
}
