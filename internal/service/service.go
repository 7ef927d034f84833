package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
	"golang.org/x/sync/singleflight"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// shortCodeAlphabet is the 62-symbol alphabet short codes are drawn from.
const shortCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// DefaultExpiryDays is used when a shorten request carries no expiry.
	DefaultExpiryDays = 7
	// MinExpiryDays and MaxExpiryDays bound the accepted expiry range.
	MinExpiryDays = 1
	MaxExpiryDays = 365

	// maxAllocAttempts bounds the generate-probe-insert loop before falling
	// back to a longer code.
	maxAllocAttempts = 10
)

var (
	// ErrURLRequired is returned when the url to shorten is empty or missing.
	ErrURLRequired = errors.New("url is required")
	// ErrUnsupportedScheme is returned for urls with a scheme other than http or https.
	ErrUnsupportedScheme = errors.New("only http and https urls are allowed")
	// ErrInvalidHost is returned for urls without a usable host.
	ErrInvalidHost = errors.New("invalid url host")
	// ErrExpiryOutOfRange is returned when the requested expiry is outside [MinExpiryDays, MaxExpiryDays].
	ErrExpiryOutOfRange = errors.New("expiry must be between 1 and 365 days")
	// ErrShortCodeExpired is returned when a short code is known but past its expiry.
	ErrShortCodeExpired = errors.New("short code expired")
)

// IsValidationError reports whether err stems from invalid shorten input
// rather than a storage failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrURLRequired) ||
		errors.Is(err, ErrUnsupportedScheme) ||
		errors.Is(err, ErrInvalidHost) ||
		errors.Is(err, ErrExpiryOutOfRange)
}

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL with the given expiry.
	// Returns database.ErrShortCodeExists if the short code is taken.
	Create(ctx context.Context, shortCode, targetURL string, expiresAt *time.Time) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByTargetURL retrieves a URL by its target URL, for the dedup check.
	GetByTargetURL(ctx context.Context, targetURL string) (*models.URL, error)

	// CodeExists reports whether a short code is already stored.
	CodeExists(ctx context.Context, shortCode string) (bool, error)

	// ExtendExpiry replaces the expiry of an existing record.
	ExtendExpiry(ctx context.Context, shortCode string, expiresAt time.Time) (*models.URL, error)

	// RecordAccess increments the click counter and stamps the access time.
	RecordAccess(ctx context.Context, shortCode string, accessedAt time.Time) (*models.URL, error)

	// Delete removes a URL by its short code. Removing an absent code is a no-op.
	Delete(ctx context.Context, shortCode string) error
}

// URLService implements the shorten and resolve operations on top of a
// URLRepository.
type URLService struct {
	repo            URLRepository
	shortCodeLength int
	group           singleflight.Group
	now             func() time.Time
}

// NewURLService creates a new instance of URLService with the provided
// repository and short code length.
func NewURLService(repo URLRepository, shortCodeLength int) *URLService {
	return &URLService{
		repo:            repo,
		shortCodeLength: shortCodeLength,
		now:             time.Now,
	}
}

// NormalizeURL trims the input, defaults the scheme to https and verifies
// that the result is an absolute http(s) URL with a host.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrURLRequired
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrInvalidHost
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}
	if parsed.Host == "" {
		return "", ErrInvalidHost
	}

	return rawURL, nil
}

func validateExpiryDays(days *int) (int, error) {
	if days == nil {
		return DefaultExpiryDays, nil
	}
	if *days < MinExpiryDays || *days > MaxExpiryDays {
		return 0, ErrExpiryOutOfRange
	}
	return *days, nil
}

type shortenResult struct {
	url    *models.URL
	reused bool
}

// ShortenURL returns a short code for the given URL, valid for the given
// number of days (default 7 when nil). Repeated calls for the same live URL
// return the existing code and push its expiry forward; an expired record
// for the URL is dropped and replaced. The reused flag reports whether an
// existing code was returned instead of a fresh allocation.
//
// Concurrent calls for the same normalized URL are collapsed in-process, so
// a single instance never allocates two live codes for one target. Across
// instances the dedup check remains best-effort.
func (s *URLService) ShortenURL(ctx context.Context, rawURL string, expiryDays *int) (*models.URL, bool, error) {
	const op = "service.URLService.ShortenURL"

	targetURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	days, err := validateExpiryDays(expiryDays)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := s.now().Add(time.Duration(days) * 24 * time.Hour)

	v, err, _ := s.group.Do(targetURL, func() (any, error) {
		return s.shorten(ctx, targetURL, expiresAt)
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	res := v.(shortenResult)
	return res.url, res.reused, nil
}

func (s *URLService) shorten(ctx context.Context, targetURL string, expiresAt time.Time) (shortenResult, error) {
	existing, err := s.repo.GetByTargetURL(ctx, targetURL)
	if err != nil && !errors.Is(err, database.ErrURLNotFound) {
		return shortenResult{}, fmt.Errorf("failed to look up target url: %w", err)
	}

	if existing != nil {
		if !existing.ExpiredAt(s.now()) {
			url, err := s.repo.ExtendExpiry(ctx, existing.ShortCode, expiresAt)
			if err == nil {
				return shortenResult{url: url, reused: true}, nil
			}
			// The record may have been reaped between the lookup and the
			// bump; allocate fresh in that case.
			if !errors.Is(err, database.ErrURLNotFound) {
				return shortenResult{}, fmt.Errorf("failed to extend url expiry: %w", err)
			}
		} else if err := s.repo.Delete(ctx, existing.ShortCode); err != nil {
			return shortenResult{}, fmt.Errorf("failed to delete expired url: %w", err)
		}
	}

	url, err := s.allocate(ctx, targetURL, expiresAt)
	if err != nil {
		return shortenResult{}, err
	}

	return shortenResult{url: url}, nil
}

// allocate draws candidate codes until one inserts cleanly. Each candidate
// is probed for existence first, and a duplicate-key failure on insert is a
// retry signal, not a fatal error. After maxAllocAttempts collisions one
// final candidate one character longer is inserted without a probe, trading
// the perfect-uniqueness guarantee at the tail for availability.
func (s *URLService) allocate(ctx context.Context, targetURL string, expiresAt time.Time) (*models.URL, error) {
	for i := 0; i < maxAllocAttempts; i++ {
		shortCode, err := gonanoid.Generate(shortCodeAlphabet, s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		taken, err := s.repo.CodeExists(ctx, shortCode)
		if err != nil {
			return nil, fmt.Errorf("failed to check short code: %w", err)
		}
		if taken {
			continue
		}

		url, err := s.repo.Create(ctx, shortCode, targetURL, &expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}
			return nil, fmt.Errorf("failed to create url record: %w", err)
		}

		return url, nil
	}

	shortCode, err := gonanoid.Generate(shortCodeAlphabet, s.shortCodeLength+1)
	if err != nil {
		return nil, fmt.Errorf("failed to generate short code: %w", err)
	}

	url, err := s.repo.Create(ctx, shortCode, targetURL, &expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create url record: %w", err)
	}

	return url, nil
}

// ResolveShortCode returns the record behind a short code and accounts the
// access. A code past its expiry is deleted on the spot and reported as
// expired, so a later resolve of the same code reports not found.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.ExpiredAt(s.now()) {
		if err := s.repo.Delete(ctx, shortCode); err != nil {
			return nil, fmt.Errorf("%s: failed to delete expired url: %w", op, err)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrShortCodeExpired)
	}

	url, err = s.repo.RecordAccess(ctx, shortCode, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record url access: %w", op, err)
	}

	return url, nil
}

// GetURLInfo returns the record snapshot for a short code without touching
// its access accounting.
func (s *URLService) GetURLInfo(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.GetURLInfo"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url info: %w", op, err)
	}

	return url, nil
}
