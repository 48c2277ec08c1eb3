package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

// SQLAdapter persists catalogs and the ledger in a SQL database.
// Every mutation runs in its own database transaction.
type SQLAdapter struct {
	db *sql.DB
	d  dialect
}

func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, d: sqliteDialect}
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, d: mysqlDialect}
}

// DB returns the underlying handle.
func (a *SQLAdapter) DB() *sql.DB {
	return a.db
}

func (a *SQLAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *SQLAdapter) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate creates the schema if it is missing. It is safe to call on every start.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range a.d.schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s schema: %w", a.d.name, err)
		}
	}

	var version sql.NullInt64
	if err := a.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version.Valid && version.Int64 >= currentSchemaVersion {
		return nil
	}

	if _, err := a.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func (a *SQLAdapter) EnsureItems(ctx context.Context, descriptions []string) (map[string]int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64, len(descriptions))
	for _, description := range descriptions {
		if _, ok := ids[description]; ok {
			continue
		}
		id, err := a.ensureRow(ctx, tx, "items", "item_id", "description", description)
		if err != nil {
			return nil, err
		}
		ids[description] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit items: %w", err)
	}
	return ids, nil
}

func (a *SQLAdapter) EnsureStore(ctx context.Context, name string) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := a.ensureRow(ctx, tx, "stores", "store_id", "name", name)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit store: %w", err)
	}
	return id, nil
}

// ensureRow inserts value into a table with a unique column unless present and returns its id.
func (a *SQLAdapter) ensureRow(ctx context.Context, tx *sql.Tx, table, idColumn, column, value string) (int64, error) {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf(`%s INTO %s (%s) VALUES (?)`, a.d.insertIgnore, table, column), value)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, idColumn, table, column), value,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", table, err)
	}
	return id, nil
}

func (a *SQLAdapter) ListItems(ctx context.Context) (map[int64]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT item_id, description FROM items`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64]string)
	for rows.Next() {
		var (
			id          int64
			description string
		)
		if err := rows.Scan(&id, &description); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items[id] = description
	}
	return items, rows.Err()
}

func (a *SQLAdapter) ResetStoreOrder(ctx context.Context, storeID int64) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resetStoreOrder(ctx, tx, storeID); err != nil {
		return err
	}
	return tx.Commit()
}

func (a *SQLAdapter) SetStoreOrder(ctx context.Context, storeID int64, order map[int64]int) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := a.insertStoreOrder(ctx, tx, storeID, order); err != nil {
		return err
	}
	return tx.Commit()
}

func (a *SQLAdapter) ReplaceStoreOrder(ctx context.Context, storeID int64, order map[int64]int) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resetStoreOrder(ctx, tx, storeID); err != nil {
		return err
	}
	if err := a.insertStoreOrder(ctx, tx, storeID, order); err != nil {
		return err
	}
	return tx.Commit()
}

func resetStoreOrder(ctx context.Context, tx *sql.Tx, storeID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM store_item_order WHERE store_id = ?`, storeID); err != nil {
		return fmt.Errorf("delete store order: %w", err)
	}
	return nil
}

func (a *SQLAdapter) insertStoreOrder(ctx context.Context, tx *sql.Tx, storeID int64, order map[int64]int) error {
	for itemID, orderNo := range order {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO store_item_order (store_id, item_id, order_no)
			VALUES (?, ?, ?)`,
			storeID, itemID, orderNo,
		)
		if err != nil {
			if a.d.isDuplicateKey(err) {
				return domain.NewValidationError("order", "item %d already placed in store %d", itemID, storeID)
			}
			return fmt.Errorf("insert store order: %w", err)
		}
	}
	return nil
}

func (a *SQLAdapter) ListStores(ctx context.Context) (map[string]domain.Store, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT store_id, name FROM stores`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	stores := make(map[string]domain.Store)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		names[id] = name
		stores[name] = domain.Store{ID: id, Order: make(map[int64]int)}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orderRows, err := a.db.QueryContext(ctx, `SELECT store_id, item_id, order_no FROM store_item_order`)
	if err != nil {
		return nil, fmt.Errorf("query store order: %w", err)
	}
	defer orderRows.Close()

	for orderRows.Next() {
		var (
			storeID, itemID int64
			orderNo         int
		)
		if err := orderRows.Scan(&storeID, &itemID, &orderNo); err != nil {
			return nil, fmt.Errorf("scan store order: %w", err)
		}
		if name, ok := names[storeID]; ok {
			stores[name].Order[itemID] = orderNo
		}
	}
	return stores, orderRows.Err()
}

func (a *SQLAdapter) ApplyTransaction(ctx context.Context, t domain.Transaction) (domain.Outcome, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seen int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE transaction_id = ?`, t.TransactionID,
	).Scan(&seen)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("query history: %w", err)
	}
	if seen != 0 {
		return domain.Discarded(t.TransactionID, domain.ReasonDuplicate), nil
	}

	var known int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE item_id = ?`, t.ItemID).Scan(&known)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("query item: %w", err)
	}
	if known == 0 {
		return domain.Outcome{}, domain.NewValidationError("itemid", "unknown item %d", t.ItemID)
	}

	_, err = tx.ExecContext(ctx,
		a.d.insertIgnore+` INTO current_counts (item_id, item_count, last_edited_utc) VALUES (?, 0, ?)`,
		t.ItemID, t.ProcessedAtUTC,
	)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("insert current count: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE current_counts
		SET item_count = item_count + ?, last_edited_utc = ?
		WHERE item_id = ? AND item_count + ? >= 0`,
		t.Delta, t.ProcessedAtUTC, t.ItemID, t.Delta,
	)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("update current count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("update current count: %w", err)
	}
	if rows == 0 {
		return domain.Outcome{}, fmt.Errorf("item %d delta %d: %w", t.ItemID, t.Delta, domain.ErrInvariantViolation)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (transaction_id, item_id, delta, submitting_user, processed_utc)
		VALUES (?, ?, ?, ?, ?)`,
		t.TransactionID, t.ItemID, t.Delta, t.SubmittingUser, t.ProcessedAtUTC,
	)
	if err != nil {
		// lost a race against a concurrent apply of the same id
		if a.d.isDuplicateKey(err) {
			return domain.Discarded(t.TransactionID, domain.ReasonDuplicate), nil
		}
		return domain.Outcome{}, fmt.Errorf("insert history: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT item_count FROM current_counts WHERE item_id = ?`, t.ItemID,
	).Scan(&count)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("query current count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Outcome{}, fmt.Errorf("commit transaction: %w", err)
	}
	return domain.Applied(t.TransactionID, count), nil
}

func (a *SQLAdapter) CurrentList(ctx context.Context) (map[int64]int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT item_id, item_count FROM current_counts WHERE item_count > 0`)
	if err != nil {
		return nil, fmt.Errorf("query current counts: %w", err)
	}
	defer rows.Close()

	list := make(map[int64]int)
	for rows.Next() {
		var (
			itemID int64
			count  int
		)
		if err := rows.Scan(&itemID, &count); err != nil {
			return nil, fmt.Errorf("scan current count: %w", err)
		}
		list[itemID] = count
	}
	return list, rows.Err()
}

func (a *SQLAdapter) CurrentCount(ctx context.Context, itemID int64) (domain.CurrentCount, bool, error) {
	cc := domain.CurrentCount{ItemID: itemID}
	err := a.db.QueryRowContext(ctx,
		`SELECT item_count, last_edited_utc FROM current_counts WHERE item_id = ?`, itemID,
	).Scan(&cc.Count, &cc.LastEditedUTC)

	if errors.Is(err, sql.ErrNoRows) {
		return cc, false, nil
	}
	if err != nil {
		return cc, false, fmt.Errorf("query current count: %w", err)
	}
	return cc, true, nil
}

func (a *SQLAdapter) History(ctx context.Context, itemID int64) ([]domain.Transaction, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT transaction_id, item_id, delta, submitting_user, processed_utc
		FROM history WHERE item_id = ?
		ORDER BY `+a.d.historyOrder, itemID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.TransactionID, &t.ItemID, &t.Delta, &t.SubmittingUser, &t.ProcessedAtUTC); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, t)
	}
	return history, rows.Err()
}
