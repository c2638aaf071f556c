package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var (
	_ repository.SnapshotStore    = (*SQLiteStore)(nil)
	_ repository.PreferencesStore = (*SQLiteStore)(nil)
	_ repository.VoteStore        = (*SQLiteStore)(nil)
	_ repository.Store            = (*SQLiteStore)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_snapshots (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	day        TEXT NOT NULL,
	sections   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (user_id, day)
);
CREATE TABLE IF NOT EXISTS user_preferences (
	user_id       INTEGER PRIMARY KEY,
	crypto_assets TEXT NOT NULL,
	investor_type TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS votes (
	user_id      INTEGER NOT NULL,
	dashboard_id TEXT NOT NULL,
	section      TEXT NOT NULL,
	item         TEXT NOT NULL,
	value        INTEGER NOT NULL,
	day          TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	UNIQUE (user_id, dashboard_id, section, item)
);
CREATE INDEX IF NOT EXISTS idx_votes_user_day ON votes (user_id, day);
`

// SQLiteStore implements the snapshot, preferences and vote stores on a
// SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies the schema.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps busy errors away.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, userID int64, day string) (*models.DailySnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sections, created_at, updated_at FROM daily_snapshots
		WHERE user_id = ? AND day = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID, day)

	snap := models.DailySnapshot{UserID: userID, Day: day}
	var raw, created, updated string
	if err := row.Scan(&snap.ID, &raw, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snap.Sections); err != nil {
		return nil, fmt.Errorf("decode snapshot sections: %w", err)
	}
	snap.CreatedAt = parseStamp(created)
	snap.UpdatedAt = parseStamp(updated)
	return &snap, nil
}

func (s *SQLiteStore) Create(ctx context.Context, userID int64, day string, sections models.Sections) (string, error) {
	raw, err := json.Marshal(sections)
	if err != nil {
		return "", fmt.Errorf("encode snapshot sections: %w", err)
	}
	id := uuid.NewString()
	now := stamp(s.now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_snapshots (id, user_id, day, sections, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO NOTHING`, id, userID, day, string(raw), now, now)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", models.ErrAlreadyExists
	}
	return id, nil
}

func (s *SQLiteStore) ReplaceSections(ctx context.Context, userID int64, day string, sections models.Sections) error {
	raw, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode snapshot sections: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE daily_snapshots SET sections = ?, updated_at = ? WHERE user_id = ? AND day = ?`,
		string(raw), stamp(s.now()), userID, day)
	if err != nil {
		return fmt.Errorf("replace sections: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotReady
	}
	return nil
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT crypto_assets, investor_type, content_type, created_at FROM user_preferences WHERE user_id = ?`, userID)

	var assets, investor, content, created string
	if err := row.Scan(&assets, &investor, &content, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	prefs := &models.UserPreferences{
		UserID:       userID,
		InvestorType: models.InvestorType(investor),
		CreatedAt:    parseStamp(created),
	}
	if err := json.Unmarshal([]byte(assets), &prefs.CryptoAssets); err != nil {
		return nil, fmt.Errorf("decode crypto assets: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &prefs.ContentType); err != nil {
		return nil, fmt.Errorf("decode content types: %w", err)
	}
	return prefs, nil
}

func (s *SQLiteStore) SavePreferences(ctx context.Context, prefs *models.UserPreferences) error {
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = s.now().UTC()
	}
	assets, err := json.Marshal(prefs.CryptoAssets)
	if err != nil {
		return fmt.Errorf("encode crypto assets: %w", err)
	}
	content, err := json.Marshal(prefs.ContentType)
	if err != nil {
		return fmt.Errorf("encode content types: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, crypto_assets, investor_type, content_type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		prefs.UserID, string(assets), string(prefs.InvestorType), string(content), stamp(prefs.CreatedAt))
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrPreferencesExist
	}
	return nil
}

func (s *SQLiteStore) SaveVote(ctx context.Context, v *models.Vote) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (user_id, dashboard_id, section, item, value, day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, dashboard_id, section, item)
		DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		v.UserID, v.DashboardID, string(v.Section), v.Item, v.Value, v.Day, stamp(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("save vote: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListVotes(ctx context.Context, userID int64, day, dashboardID string) ([]models.Vote, error) {
	q := `SELECT dashboard_id, section, item, value, day, created_at FROM votes WHERE user_id = ? AND day = ?`
	args := []interface{}{userID, day}
	if dashboardID != "" {
		q += ` AND dashboard_id = ?`
		args = append(args, dashboardID)
	}
	q += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	out := []models.Vote{}
	for rows.Next() {
		v := models.Vote{UserID: userID}
		var section, created string
		if err := rows.Scan(&v.DashboardID, &section, &v.Item, &v.Value, &v.Day, &created); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Section = models.SectionKey(section)
		v.CreatedAt = parseStamp(created)
		out = append(out, v)
	}
	return out, rows.Err()
}

// stampLayout is fixed width so stored timestamps sort lexically in time order.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func stamp(t time.Time) string { return t.UTC().Format(stampLayout) }

func parseStamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
