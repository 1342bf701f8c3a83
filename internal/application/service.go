package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sp3dr4/snip/internal/domain"
	"github.com/sp3dr4/snip/internal/pkg/logging"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
	"github.com/sp3dr4/snip/internal/shortcode"
)

const (
	DefaultCacheTTL        = 24 * time.Hour
	DefaultMaxCodeAttempts = 5
)

// Options configures a LinkService. Zero values fall back to the defaults above.
type Options struct {
	BaseURL         string
	CacheTTL        time.Duration
	MaxCodeAttempts int
	Generator       shortcode.Generator
	Metrics         metrics.Registry
	Now             func() time.Time
}

// LinkService assigns codes, keeps the cache coherent with the store and
// decides redirects. Cache failures never fail an operation; store failures always do.
type LinkService struct {
	repo            domain.LinkRepository
	cache           domain.Cache
	recorder        Recorder
	generator       shortcode.Generator
	metrics         metrics.Registry
	logger          *slog.Logger
	now             func() time.Time
	baseURL         string
	cacheTTL        time.Duration
	maxCodeAttempts int
}

func NewLinkService(repo domain.LinkRepository, cache domain.Cache, recorder Recorder, opts Options, logger *slog.Logger) *LinkService {
	s := &LinkService{
		repo:            repo,
		cache:           cache,
		recorder:        recorder,
		generator:       opts.Generator,
		metrics:         opts.Metrics,
		logger:          logger,
		now:             opts.Now,
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		cacheTTL:        opts.CacheTTL,
		maxCodeAttempts: opts.MaxCodeAttempts,
	}

	if s.generator == nil {
		s.generator = shortcode.NewRandomGenerator()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNoOpRegistry()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	if s.maxCodeAttempts <= 0 {
		s.maxCodeAttempts = DefaultMaxCodeAttempts
	}
	return s
}

type CreateLinkRequest struct {
	URL        string `json:"url"`
	CustomCode string `json:"customCode,omitempty"`
}

type LinkResponse struct {
	Code        string     `json:"code"`
	URL         string     `json:"url"`
	ShortURL    string     `json:"shortUrl"`
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `json:"createdAt"`
	// Created is false when an existing link for the same URL was returned.
	Created bool `json:"-"`
}

// Redirect is the outcome of resolving a code.
type Redirect struct {
	Code      string
	TargetURL string
	CacheHit  bool
}

// CreateLink stores a new link, or returns the existing one for the URL when no custom code is given.
func (s *LinkService) CreateLink(ctx context.Context, req CreateLinkRequest) (*LinkResponse, error) {
	target, code, custom, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	if custom {
		exists, err := s.repo.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check code %s: %w", code, err)
		}
		if exists {
			return nil, domain.ErrCodeConflict
		}
	} else {
		existing, err := s.repo.FindByURL(ctx, target)
		switch {
		case err == nil:
			s.cachePut(context.WithoutCancel(ctx), domain.URLKey(existing.URL), existing)
			s.metrics.IncLinksDeduplicated()
			s.log(ctx).Debug("Returning existing link for url", "code", existing.Code, "url", existing.URL)
			return s.toResponse(existing, false), nil
		case !errors.Is(err, domain.ErrLinkNotFound):
			return nil, fmt.Errorf("failed to look up url: %w", err)
		}

		code, err = s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	link, err := s.repo.Create(ctx, domain.NewLink(code, target, s.now()))
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateCode) {
			if custom {
				return nil, domain.ErrCodeConflict
			}
			return nil, fmt.Errorf("generated code %s collided after %d attempts: %w", code, s.maxCodeAttempts, err)
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	// The store write is authoritative from here on; a cancelled request must not skip the cache fill.
	cacheCtx := context.WithoutCancel(ctx)
	s.cachePut(cacheCtx, domain.URLKey(link.URL), link)
	s.fillCodeKey(ctx, link)

	s.metrics.IncLinksCreated()
	s.log(ctx).Info("Created link", "code", link.Code, "url", link.URL, "custom", custom)
	return s.toResponse(link, true), nil
}

func (s *LinkService) validateCreate(req CreateLinkRequest) (target, code string, custom bool, err error) {
	details := make(map[string]string)

	target, urlErr := shortcode.ValidateURL(req.URL)
	collectValidation(details, urlErr)

	custom = strings.TrimSpace(req.CustomCode) != ""
	if custom {
		var codeErr error
		code, codeErr = shortcode.Validate(req.CustomCode)
		collectValidation(details, codeErr)
	}

	if len(details) > 0 {
		return "", "", false, &domain.ValidationError{Details: details}
	}
	return target, code, custom, nil
}

func collectValidation(details map[string]string, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		for field, msg := range vErr.Details {
			details[field] = msg
		}
	}
}

// generateCode draws a code and redraws up to maxCodeAttempts times while it is taken.
// The last draw is returned unchecked; a collision then surfaces from the insert.
func (s *LinkService) generateCode(ctx context.Context) (string, error) {
	code := s.generator.Generate()
	for attempt := 0; attempt < s.maxCodeAttempts; attempt++ {
		exists, err := s.repo.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check generated code: %w", err)
		}
		if !exists && !shortcode.Reserved[code] {
			return code, nil
		}
		s.log(ctx).Debug("Generated code already taken", "code", code, "attempt", attempt+1)
		code = s.generator.Generate()
	}

	s.log(ctx).Warn("Code generation retries exhausted, using last candidate", "code", code, "attempts", s.maxCodeAttempts)
	return code, nil
}

// Resolve finds the redirect target for code. Cache hits hand the click to the
// recorder without waiting; misses record it synchronously with the store lookup.
func (s *LinkService) Resolve(ctx context.Context, code string) (*Redirect, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrLinkNotFound
	}

	if cached := s.cacheGet(ctx, domain.CodeKey(code)); cached != nil {
		s.recorder.Record(code, s.now())
		s.metrics.IncRedirects(metrics.CacheHit)
		return &Redirect{Code: code, TargetURL: cached.URL, CacheHit: true}, nil
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to find link %s: %w", code, err)
	}

	updated, err := s.repo.RecordClick(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			// deleted between lookup and update
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to record click for %s: %w", code, err)
	}

	s.fillCodeKey(ctx, updated)
	s.metrics.IncRedirects(metrics.CacheMiss)
	return &Redirect{Code: code, TargetURL: link.URL}, nil
}

// Lookup resolves code like Resolve but records no click. It answers HEAD requests.
func (s *LinkService) Lookup(ctx context.Context, code string) (*Redirect, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrLinkNotFound
	}

	if cached := s.cacheGet(ctx, domain.CodeKey(code)); cached != nil {
		return &Redirect{Code: code, TargetURL: cached.URL, CacheHit: true}, nil
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to find link %s: %w", code, err)
	}

	s.fillCodeKey(ctx, link)
	return &Redirect{Code: code, TargetURL: link.URL}, nil
}

// fillCodeKey caches a snapshot read before the write. A delete may have
// evicted the key in between, so the store is checked again after the write
// and the key is evicted if the link is gone.
func (s *LinkService) fillCodeKey(ctx context.Context, link *domain.Link) {
	ctx = context.WithoutCancel(ctx)
	key := domain.CodeKey(link.Code)
	if !s.cachePut(ctx, key, link) {
		return
	}

	exists, err := s.repo.Exists(ctx, link.Code)
	if err == nil && exists {
		return
	}
	if err != nil {
		s.log(ctx).Warn("Could not confirm cached link still exists", "code", link.Code, "error", err)
	}
	s.cacheEvict(ctx, key)
}

// GetLink reads a link straight from the store.
func (s *LinkService) GetLink(ctx context.Context, code string) (*LinkResponse, error) {
	link, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link %s: %w", code, err)
	}
	return s.toResponse(link, false), nil
}

// ListLinks returns links newest first. A limit <= 0 returns all of them.
func (s *LinkService) ListLinks(ctx context.Context, limit int) ([]*LinkResponse, error) {
	links, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	responses := make([]*LinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, s.toResponse(link, false))
	}
	return responses, nil
}

// DeleteLink removes the link from the store, then evicts its cache entries.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return domain.ErrLinkNotFound
		}
		return fmt.Errorf("failed to find link %s: %w", code, err)
	}

	if err := s.repo.Delete(ctx, code); err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return domain.ErrLinkNotFound
		}
		return fmt.Errorf("failed to delete link %s: %w", code, err)
	}

	s.cacheEvict(context.WithoutCancel(ctx), domain.CodeKey(code), domain.URLKey(link.URL))

	s.metrics.IncLinksDeleted()
	s.log(ctx).Info("Deleted link", "code", code, "url", link.URL)
	return nil
}

// ShortURL joins the configured base URL and a code.
func (s *LinkService) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

func (s *LinkService) toResponse(link *domain.Link, created bool) *LinkResponse {
	return &LinkResponse{
		Code:        link.Code,
		URL:         link.URL,
		ShortURL:    s.ShortURL(link.Code),
		Clicks:      link.Clicks,
		LastClicked: link.LastClicked,
		CreatedAt:   link.CreatedAt,
		Created:     created,
	}
}

func (s *LinkService) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}
