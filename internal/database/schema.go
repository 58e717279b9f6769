package database

import "fmt"

// Schemas are applied with CREATE TABLE IF NOT EXISTS so EnsureSchema is
// safe to run on every startup.

// PortfolioSchema holds stored portfolios and their positions.
const PortfolioSchema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
CREATE INDEX IF NOT EXISTS idx_portfolios_owner ON portfolios(owner_id);

CREATE TABLE IF NOT EXISTS positions (
	portfolio_id INTEGER NOT NULL REFERENCES portfolios(id),
	symbol TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	sector TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL,
	avg_cost REAL NOT NULL DEFAULT 0,
	last_updated INTEGER NOT NULL DEFAULT (strftime('%s','now')),
	PRIMARY KEY (portfolio_id, symbol)
);
`

// HistorySchema holds daily price bars keyed by symbol and date.
const HistorySchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	symbol TEXT NOT NULL,
	date INTEGER NOT NULL,
	open REAL,
	high REAL,
	low REAL,
	close REAL NOT NULL,
	volume INTEGER,
	PRIMARY KEY (symbol, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date ON daily_prices(symbol, date DESC);
`

// RiskSchema holds the engine's own state: the append-only result audit
// trail, the daily monitoring status, and alert rules/logs.
const RiskSchema = `
CREATE TABLE IF NOT EXISTS var_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	portfolio_id INTEGER NOT NULL,
	calculation_date INTEGER NOT NULL,
	portfolio_value REAL NOT NULL,
	var_absolute REAL NOT NULL,
	var_percentage REAL NOT NULL,
	expected_shortfall REAL NOT NULL,
	confidence_level REAL NOT NULL,
	time_horizon INTEGER NOT NULL,
	method TEXT NOT NULL,
	component_var TEXT NOT NULL DEFAULT '{}',
	diagnostics TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_var_results_portfolio ON var_results(portfolio_id, calculation_date DESC);

CREATE TABLE IF NOT EXISTS stress_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	portfolio_id INTEGER NOT NULL,
	scenario_id TEXT NOT NULL,
	scenario_type TEXT NOT NULL,
	test_date INTEGER NOT NULL,
	value_before REAL NOT NULL,
	value_after REAL NOT NULL,
	absolute_loss REAL NOT NULL,
	percentage_loss REAL NOT NULL,
	worst_case_loss REAL NOT NULL,
	best_case_gain REAL NOT NULL,
	position_impacts TEXT NOT NULL DEFAULT '{}',
	sensitivity TEXT NOT NULL DEFAULT '{}',
	simulation_details TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_stress_results_portfolio ON stress_results(portfolio_id, test_date DESC);

CREATE TABLE IF NOT EXISTS monitoring_status (
	owner_id INTEGER NOT NULL,
	portfolio_id INTEGER NOT NULL,
	monitoring_date TEXT NOT NULL,
	portfolio_value REAL NOT NULL,
	daily_pnl REAL NOT NULL,
	daily_pnl_percentage REAL NOT NULL,
	current_var REAL NOT NULL,
	volatility REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	concentration REAL NOT NULL,
	alert_count INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (portfolio_id, monitoring_date)
);

CREATE TABLE IF NOT EXISTS alert_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	portfolio_id INTEGER,
	rule_name TEXT NOT NULL,
	rule_type TEXT NOT NULL,
	threshold_config TEXT NOT NULL DEFAULT '{}',
	severity TEXT NOT NULL DEFAULT 'warning',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
CREATE INDEX IF NOT EXISTS idx_alert_rules_owner ON alert_rules(owner_id, is_active);

CREATE TABLE IF NOT EXISTS alert_logs (
	id TEXT PRIMARY KEY,
	rule_id INTEGER NOT NULL,
	owner_id INTEGER NOT NULL,
	portfolio_id INTEGER NOT NULL,
	alert_time INTEGER NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	current_value REAL,
	threshold_value REAL,
	is_resolved INTEGER NOT NULL DEFAULT 0,
	notification_sent INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_alert_logs_portfolio ON alert_logs(portfolio_id, alert_time DESC);
`

// CacheSchema holds the TTL price cache. The data is ephemeral and can
// always be rebuilt from the history store.
const CacheSchema = `
CREATE TABLE IF NOT EXISTS price_cache (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// EnsureSchema applies a schema to a database.
func (db *DB) EnsureSchema(schema string) error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema for %s: %w", db.name, err)
	}
	return nil
}
