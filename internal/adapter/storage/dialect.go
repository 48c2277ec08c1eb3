package storage

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

const currentSchemaVersion = 1

// dialect holds the few statements that differ between the supported engines.
type dialect struct {
	name string

	// schema creates every table; each statement must be safe to re-run
	schema []string

	// insertIgnore prefixes inserts that must be no-ops on key conflicts
	insertIgnore string

	// historyOrder orders history rows by processing time, then arrival
	historyOrder string

	isDuplicateKey func(error) bool
}

var sqliteDialect = dialect{
	name: "sqlite3",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS items (
			item_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL UNIQUE
		)`, `
		CREATE TABLE IF NOT EXISTS current_counts (
			item_id         INTEGER PRIMARY KEY,
			item_count      INTEGER NOT NULL DEFAULT 0,
			last_edited_utc TEXT NOT NULL,
			CHECK (item_count >= 0),
			FOREIGN KEY (item_id) REFERENCES items(item_id)
		)`, `
		CREATE TABLE IF NOT EXISTS stores (
			store_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name     TEXT NOT NULL UNIQUE
		)`, `
		CREATE TABLE IF NOT EXISTS store_item_order (
			store_id INTEGER NOT NULL,
			item_id  INTEGER NOT NULL,
			order_no INTEGER NOT NULL,
			PRIMARY KEY (store_id, item_id),
			FOREIGN KEY (store_id) REFERENCES stores(store_id),
			FOREIGN KEY (item_id) REFERENCES items(item_id)
		)`, `
		CREATE TABLE IF NOT EXISTS history (
			transaction_id  TEXT NOT NULL PRIMARY KEY,
			item_id         INTEGER NOT NULL,
			delta           INTEGER NOT NULL,
			submitting_user TEXT NOT NULL,
			processed_utc   TEXT NOT NULL,
			CHECK (delta != 0),
			FOREIGN KEY (item_id) REFERENCES items(item_id)
		)`, `
		CREATE INDEX IF NOT EXISTS idx_history_item ON history (item_id, processed_utc)`,
	},
	insertIgnore: "INSERT OR IGNORE",
	historyOrder: "processed_utc, rowid",
	isDuplicateKey: func(err error) bool {
		var se sqlite3.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

// Descriptions and store names use a binary collation so lookups stay case-sensitive.
var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INT NOT NULL
		) ENGINE=InnoDB`, `
		CREATE TABLE IF NOT EXISTS items (
			item_id     BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			description VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			UNIQUE KEY uq_items_description (description)
		) ENGINE=InnoDB`, `
		CREATE TABLE IF NOT EXISTS current_counts (
			item_id         BIGINT NOT NULL PRIMARY KEY,
			item_count      INT NOT NULL DEFAULT 0,
			last_edited_utc CHAR(20) NOT NULL,
			CONSTRAINT chk_current_counts_nonnegative CHECK (item_count >= 0),
			CONSTRAINT fk_current_counts_item FOREIGN KEY (item_id) REFERENCES items(item_id)
		) ENGINE=InnoDB`, `
		CREATE TABLE IF NOT EXISTS stores (
			store_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name     VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			UNIQUE KEY uq_stores_name (name)
		) ENGINE=InnoDB`, `
		CREATE TABLE IF NOT EXISTS store_item_order (
			store_id BIGINT NOT NULL,
			item_id  BIGINT NOT NULL,
			order_no INT NOT NULL,
			PRIMARY KEY (store_id, item_id),
			CONSTRAINT fk_store_item_order_store FOREIGN KEY (store_id) REFERENCES stores(store_id),
			CONSTRAINT fk_store_item_order_item FOREIGN KEY (item_id) REFERENCES items(item_id)
		) ENGINE=InnoDB`, `
		CREATE TABLE IF NOT EXISTS history (
			transaction_id  CHAR(36) NOT NULL PRIMARY KEY,
			seq             BIGINT NOT NULL AUTO_INCREMENT UNIQUE,
			item_id         BIGINT NOT NULL,
			delta           INT NOT NULL,
			submitting_user VARCHAR(255) NOT NULL,
			processed_utc   CHAR(20) NOT NULL,
			INDEX idx_history_item (item_id, processed_utc),
			CONSTRAINT chk_history_delta CHECK (delta <> 0),
			CONSTRAINT fk_history_item FOREIGN KEY (item_id) REFERENCES items(item_id)
		) ENGINE=InnoDB`,
	},
	insertIgnore: "INSERT IGNORE",
	historyOrder: "processed_utc, seq",
	isDuplicateKey: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == 1062
	},
}
