package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
)

// timeLayout is the fixed-width layout used for every persisted timestamp.
// Fixed width means lexicographic order matches chronological order, which
// the expires_at range delete relies on.
const timeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type urlRecord struct {
	ShortCode    string         `db:"short_code"`
	TargetURL    string         `db:"target_url"`
	ClickCount   int64          `db:"click_count"`
	CreatedAt    string         `db:"created_at"`
	ExpiresAt    sql.NullString `db:"expires_at"`
	LastAccessed sql.NullString `db:"last_accessed"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ShortCode:  r.ShortCode,
		TargetURL:  r.TargetURL,
		ClickCount: r.ClickCount,
	}

	if t, err := time.Parse(timeLayout, r.CreatedAt); err == nil {
		url.CreatedAt = t
	}

	if r.ExpiresAt.Valid {
		t, err := time.Parse(timeLayout, r.ExpiresAt.String)
		if err != nil {
			// Rows may carry expiry strings in layouts we no longer write.
			// The zero time is before any "now", so every expiry check sees
			// such rows as long expired.
			t = time.Time{}
		}
		url.ExpiresAt = &t
	}

	if r.LastAccessed.Valid {
		if t, err := time.Parse(timeLayout, r.LastAccessed.String); err == nil {
			url.LastAccessed = &t
		}
	}

	return url
}

const urlColumns = `short_code, target_url, click_count, created_at, expires_at, last_accessed`

// URLRepository provides access to shortened URL records stored in sqlite.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func (r *URLRepository) Create(ctx context.Context, shortCode, targetURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.Create"

	var exp sql.NullString
	if expiresAt != nil {
		exp = sql.NullString{String: formatTime(*expiresAt), Valid: true}
	}

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, target_url, click_count, created_at, expires_at)
		VALUES (?, ?, 0, ?, ?)
		RETURNING ` + urlColumns

	err := r.db.GetContext(ctx, rec, query, shortCode, targetURL, formatTime(time.Now()), exp)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT ` + urlColumns + `
		FROM urls
		WHERE short_code = ?`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByTargetURL returns the record for a target URL, used by the dedup
// check on the allocation path.
func (r *URLRepository) GetByTargetURL(ctx context.Context, targetURL string) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.GetByTargetURL"

	rec := new(urlRecord)
	query := `SELECT ` + urlColumns + `
		FROM urls
		WHERE target_url = ?
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, targetURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// CodeExists reports whether a short code is already taken. It is the
// collision probe for code allocation.
func (r *URLRepository) CodeExists(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.sqlite.URLRepository.CodeExists"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = ?)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, fmt.Errorf("%s: failed to check short code: %w", op, err)
	}

	return exists, nil
}

// ExtendExpiry replaces the expiry of an existing record. The new instant
// overwrites whatever remained, it does not accumulate.
func (r *URLRepository) ExtendExpiry(ctx context.Context, shortCode string, expiresAt time.Time) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.ExtendExpiry"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET expires_at = ?
		WHERE short_code = ?
		RETURNING ` + urlColumns

	err := r.db.GetContext(ctx, rec, query, formatTime(expiresAt), shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to extend url expiry: %w", op, err)
	}

	return rec.ToURL(), nil
}

// RecordAccess increments the click counter and stamps the access time in
// a single statement.
func (r *URLRepository) RecordAccess(ctx context.Context, shortCode string, accessedAt time.Time) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.RecordAccess"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET click_count = click_count + 1,
			last_accessed = ?
		WHERE short_code = ?
		RETURNING ` + urlColumns

	err := r.db.GetContext(ctx, rec, query, formatTime(accessedAt), shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to record url access: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Delete removes a record by short code. Deleting a code that is already
// gone is a no-op: the lazy delete on the resolve path and the reaper may
// race on the same expired record.
func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "database.sqlite.URLRepository.Delete"

	query := `DELETE FROM urls WHERE short_code = ?`

	if _, err := r.db.ExecContext(ctx, query, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	return nil
}

// DeleteExpired removes every record whose expiry is strictly before the
// given instant and returns how many rows went away.
func (r *URLRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const op = "database.sqlite.URLRepository.DeleteExpired"

	query := `DELETE FROM urls
		WHERE expires_at IS NOT NULL AND expires_at < ?`

	res, err := r.db.ExecContext(ctx, query, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete expired url records: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return affected, nil
}
