package storage

// sqlite.go: persistencia durable del tracker.
//
// Tablas:
//   - `trades`: una fila por trade detectado. platform_trade_id es único, así
//     que registrar dos veces el mismo trade devuelve el id ya asignado.
//   - `trade_samples`: una fila por sample de color. Es la población completa
//     que lee el agregador; nunca se borra.
//   - `analysis_results`: un bucket por (timeframe, expiration), UPSERT.
//   - `monitoring_sessions`: una fila por arranque/parada del tracker.
//
// Los timestamps se guardan como TEXT RFC3339 de ancho fijo en UTC.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id                TEXT PRIMARY KEY,
    platform_trade_id TEXT NOT NULL UNIQUE,
    asset             TEXT NOT NULL,
    trade_type        TEXT NOT NULL DEFAULT '',
    timeframe         TEXT NOT NULL,
    duration_seconds  INTEGER NOT NULL,
    amount            REAL NOT NULL DEFAULT 0,
    start_time        TEXT NOT NULL,
    is_demo           INTEGER NOT NULL DEFAULT 1,
    created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_samples (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    trade_id     TEXT NOT NULL REFERENCES trades(id),
    time_elapsed INTEGER NOT NULL,
    chart_color  TEXT NOT NULL,
    confidence   REAL NOT NULL DEFAULT 0,
    timestamp    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_results (
    timeframe     TEXT NOT NULL,
    expiration    INTEGER NOT NULL,
    win_rate      REAL NOT NULL,
    total_samples INTEGER NOT NULL,
    confidence    TEXT NOT NULL,
    status        TEXT NOT NULL,
    is_demo       INTEGER NOT NULL DEFAULT 1,
    last_updated  TEXT NOT NULL,
    PRIMARY KEY (timeframe, expiration)
);

CREATE TABLE IF NOT EXISTS monitoring_sessions (
    id               TEXT PRIMARY KEY,
    start_time       TEXT NOT NULL,
    end_time         TEXT,
    is_active        INTEGER NOT NULL DEFAULT 1,
    capture_config   TEXT NOT NULL DEFAULT '',
    detection_status TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trades_timeframe ON trades(timeframe);
CREATE INDEX IF NOT EXISTS idx_trades_start     ON trades(start_time DESC);
CREATE INDEX IF NOT EXISTS idx_samples_trade    ON trade_samples(trade_id, time_elapsed);
CREATE INDEX IF NOT EXISTS idx_samples_elapsed  ON trade_samples(time_elapsed);
CREATE INDEX IF NOT EXISTS idx_sessions_active  ON monitoring_sessions(is_active);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// --- trades ---

// RegisterTrade inserta el trade y devuelve su id. Si el platform id ya
// existe devuelve el id original sin tocar la fila.
func (s *SQLiteStorage) RegisterTrade(ctx context.Context, platformTradeID string, d domain.TradeDescriptor) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, platform_trade_id, asset, trade_type, timeframe, duration_seconds,
			 amount, start_time, is_demo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform_trade_id) DO NOTHING
	`,
		id, platformTradeID, d.Asset, string(d.TradeType), d.Timeframe, d.DurationSeconds,
		d.Amount, formatTime(d.StartTime), boolInt(d.IsDemo), formatTime(s.now()),
	); err != nil {
		return "", fmt.Errorf("storage.RegisterTrade: insert %s: %w", platformTradeID, err)
	}

	var stored string
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM trades WHERE platform_trade_id = ?`, platformTradeID,
	).Scan(&stored); err != nil {
		return "", fmt.Errorf("storage.RegisterTrade: read back %s: %w", platformTradeID, err)
	}
	return stored, nil
}

const tradeColumns = `id, platform_trade_id, asset, trade_type, timeframe, duration_seconds,
	amount, start_time, is_demo`

// GetTrades devuelve los trades más recientes primero.
func (s *SQLiteStorage) GetTrades(ctx context.Context, limit, offset int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: sin límite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		ORDER BY start_time DESC, created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		r, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.GetTrades: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTradeByPlatformID busca un trade por su clave natural.
func (s *SQLiteStorage) GetTradeByPlatformID(ctx context.Context, platformTradeID string) (domain.TradeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE platform_trade_id = ?`, platformTradeID)
	r, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TradeRecord{}, fmt.Errorf("storage.GetTradeByPlatformID: %s: %w", platformTradeID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("storage.GetTradeByPlatformID: %w", err)
	}
	return r, nil
}

// CountTrades devuelve el número total de trades registrados.
func (s *SQLiteStorage) CountTrades(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountTrades: %w", err)
	}
	return n, nil
}

// --- samples ---

// StoreSample inserta un sample. Falla si el trade no existe.
func (s *SQLiteStorage) StoreSample(ctx context.Context, tradeID string, cs domain.ColorSample) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_samples (trade_id, time_elapsed, chart_color, confidence, timestamp)
		SELECT id, ?, ?, ?, ? FROM trades WHERE id = ?
	`, cs.TimeElapsed, string(cs.Color), cs.Confidence, formatTime(cs.Timestamp), tradeID)
	if err != nil {
		return fmt.Errorf("storage.StoreSample: trade %s: %w", tradeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.StoreSample: trade %s: %w", tradeID, domain.ErrNotFound)
	}
	return nil
}

// GetTradeSamples devuelve los samples de un trade en orden cronológico.
func (s *SQLiteStorage) GetTradeSamples(ctx context.Context, tradeID string) ([]domain.ColorSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time_elapsed, chart_color, confidence, timestamp
		FROM trade_samples
		WHERE trade_id = ?
		ORDER BY time_elapsed, id
	`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTradeSamples: query: %w", err)
	}
	return scanSamples(rows, "storage.GetTradeSamples")
}

// SamplesNear devuelve todos los samples de trades del timeframe dado con
// time_elapsed dentro de offset ± tolerance.
func (s *SQLiteStorage) SamplesNear(ctx context.Context, timeframe string, offset, tolerance int) ([]domain.ColorSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.time_elapsed, s.chart_color, s.confidence, s.timestamp
		FROM trade_samples s
		JOIN trades t ON t.id = s.trade_id
		WHERE t.timeframe = ?
		  AND s.time_elapsed BETWEEN ? AND ?
		ORDER BY s.id
	`, timeframe, offset-tolerance, offset+tolerance)
	if err != nil {
		return nil, fmt.Errorf("storage.SamplesNear: query: %w", err)
	}
	return scanSamples(rows, "storage.SamplesNear")
}

// --- buckets ---

// GetBucket devuelve el bucket de la clave dada.
func (s *SQLiteStorage) GetBucket(ctx context.Context, timeframe string, expiration int) (domain.AnalysisBucket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT timeframe, expiration, win_rate, total_samples, confidence, status, is_demo, last_updated
		FROM analysis_results
		WHERE timeframe = ? AND expiration = ?
	`, timeframe, expiration)
	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AnalysisBucket{}, fmt.Errorf("storage.GetBucket: %s/%d: %w", timeframe, expiration, domain.ErrNotFound)
	}
	if err != nil {
		return domain.AnalysisBucket{}, fmt.Errorf("storage.GetBucket: %w", err)
	}
	return b, nil
}

// UpsertBucket crea o reemplaza el bucket de su clave.
func (s *SQLiteStorage) UpsertBucket(ctx context.Context, b domain.AnalysisBucket) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_results
			(timeframe, expiration, win_rate, total_samples, confidence, status, is_demo, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timeframe, expiration) DO UPDATE SET
			win_rate      = excluded.win_rate,
			total_samples = excluded.total_samples,
			confidence    = excluded.confidence,
			status        = excluded.status,
			is_demo       = excluded.is_demo,
			last_updated  = excluded.last_updated
	`,
		b.Timeframe, b.Expiration, b.WinRate, b.TotalSamples,
		string(b.Confidence), string(b.Status), boolInt(b.IsDemo), formatTime(b.LastUpdated),
	); err != nil {
		return fmt.Errorf("storage.UpsertBucket: %s/%d: %w", b.Timeframe, b.Expiration, err)
	}
	return nil
}

// ListBuckets devuelve todos los buckets, mejor win rate primero.
func (s *SQLiteStorage) ListBuckets(ctx context.Context) ([]domain.AnalysisBucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timeframe, expiration, win_rate, total_samples, confidence, status, is_demo, last_updated
		FROM analysis_results
		ORDER BY win_rate DESC, total_samples DESC, timeframe, expiration
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListBuckets: query: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisBucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListBuckets: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- sessions ---

// CreateSession cierra cualquier sesión activa y abre una nueva.
func (s *SQLiteStorage) CreateSession(ctx context.Context, captureConfig string) (domain.MonitoringSession, error) {
	now := s.now().UTC()
	sess := domain.MonitoringSession{
		ID:            uuid.NewString(),
		StartTime:     now,
		IsActive:      true,
		CaptureConfig: captureConfig,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("storage.CreateSession: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE monitoring_sessions SET is_active = 0, end_time = ? WHERE is_active = 1`,
		formatTime(now),
	); err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("storage.CreateSession: close previous: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO monitoring_sessions (id, start_time, is_active, capture_config)
		VALUES (?, ?, 1, ?)
	`, sess.ID, formatTime(now), captureConfig); err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("storage.CreateSession: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("storage.CreateSession: commit: %w", err)
	}
	return sess, nil
}

// ActiveSession devuelve la sesión abierta más reciente.
func (s *SQLiteStorage) ActiveSession(ctx context.Context) (domain.MonitoringSession, error) {
	var (
		sess   domain.MonitoringSession
		start  string
		end    sql.NullString
		active int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_time, end_time, is_active, capture_config, detection_status
		FROM monitoring_sessions
		WHERE is_active = 1
		ORDER BY start_time DESC
		LIMIT 1
	`).Scan(&sess.ID, &start, &end, &active, &sess.CaptureConfig, &sess.DetectionStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MonitoringSession{}, fmt.Errorf("storage.ActiveSession: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("storage.ActiveSession: %w", err)
	}
	sess.StartTime = parseTime(start)
	sess.IsActive = active == 1
	if end.Valid {
		t := parseTime(end.String)
		sess.EndTime = &t
	}
	return sess, nil
}

// CloseSession marca la sesión como terminada y guarda el último estado de detección.
func (s *SQLiteStorage) CloseSession(ctx context.Context, id, detectionStatus string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE monitoring_sessions
		SET is_active = 0, end_time = ?, detection_status = ?
		WHERE id = ?
	`, formatTime(s.now()), detectionStatus, id)
	if err != nil {
		return fmt.Errorf("storage.CloseSession: %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.CloseSession: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(r rowScanner) (domain.TradeRecord, error) {
	var (
		rec       domain.TradeRecord
		tradeType string
		start     string
		isDemo    int
	)
	if err := r.Scan(
		&rec.ID,
		&rec.PlatformTradeID,
		&rec.Asset,
		&tradeType,
		&rec.Timeframe,
		&rec.DurationSeconds,
		&rec.Amount,
		&start,
		&isDemo,
	); err != nil {
		return domain.TradeRecord{}, err
	}
	rec.TradeType = domain.TradeType(tradeType)
	rec.StartTime = parseTime(start)
	rec.IsDemo = isDemo == 1
	return rec, nil
}

func scanSamples(rows *sql.Rows, op string) ([]domain.ColorSample, error) {
	defer rows.Close()

	var out []domain.ColorSample
	for rows.Next() {
		var (
			cs    domain.ColorSample
			color string
			ts    string
		)
		if err := rows.Scan(&cs.TimeElapsed, &color, &cs.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		cs.Color = domain.ParseChartColor(color)
		cs.Timestamp = parseTime(ts)
		out = append(out, cs)
	}
	return out, rows.Err()
}

func scanBucket(r rowScanner) (domain.AnalysisBucket, error) {
	var (
		b                  domain.AnalysisBucket
		tier, status, last string
		isDemo             int
	)
	if err := r.Scan(&b.Timeframe, &b.Expiration, &b.WinRate, &b.TotalSamples, &tier, &status, &isDemo, &last); err != nil {
		return domain.AnalysisBucket{}, err
	}
	b.Confidence = domain.ConfidenceTier(tier)
	b.Status = domain.BucketStatus(status)
	b.IsDemo = isDemo == 1
	b.LastUpdated = parseTime(last)
	return b, nil
}

// timeLayout tiene ancho fijo para que ORDER BY sobre TEXT respete el orden temporal.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse("2006-01-02 15:04:05", s)
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
