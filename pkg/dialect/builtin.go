package dialect

// Built-in dialects. Schema scripts are authored in the MySQL dialect, so only
// SQLite carries a DDL translator.
var (
	MySQL = &Dialect{
		Name:        "mysql",
		Placeholder: PlaceholderQuestion,
		TablesSQL: `SELECT TABLE_NAME AS name FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME`,
		ColumnsSQL: `SELECT COLUMN_NAME AS name FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
		TableExistsSQL: `SELECT TABLE_NAME AS name FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		IndexExistsSQL: `SELECT DISTINCT INDEX_NAME AS name FROM information_schema.STATISTICS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?`,
	}

	Postgres = &Dialect{
		Name:        "postgres",
		Placeholder: PlaceholderDollar,
		TablesSQL: `SELECT table_name AS name FROM information_schema.tables
			WHERE table_schema = current_schema() ORDER BY table_name`,
		ColumnsSQL: `SELECT column_name AS name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position`,
		TableExistsSQL: `SELECT table_name AS name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = ?`,
		IndexExistsSQL: `SELECT indexname AS name FROM pg_indexes
			WHERE schemaname = current_schema() AND tablename = ? AND indexname = ?`,
	}

	SQLite = &Dialect{
		Name:           "sqlite",
		Placeholder:    PlaceholderQuestion,
		TablesSQL:      `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		ColumnsSQL:     `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
		TableExistsSQL: `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		IndexExistsSQL: `SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?`,
		DDL:            MySQLToSQLite(),
	}
)

func init() {
	mustRegister(MySQL, Postgres, SQLite)
}
