package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/indexing/metrics"
)

// Kind classifies the outcome of a recommendation request.
type Kind int

const (
	KindOK Kind = iota
	KindInvalidInput
	KindInvalidCredential
	KindRateLimited
	KindSubjectNotFound
	KindIncompleteJoin
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindRateLimited:
		return "rate_limited"
	case KindSubjectNotFound:
		return "subject_not_found"
	case KindIncompleteJoin:
		return "incomplete_join"
	default:
		return "failed"
	}
}

// Result is the outcome of one request. Recommendations is set only for KindOK.
type Result struct {
	Kind            Kind
	Mode            domain.Mode
	Search          string
	Recommendations []domain.Recommendation
	Err             error
	Elapsed         time.Duration
}

// OK reports whether recommendations were produced.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

const (
	msgContactOwner = "There was an error when fetching your recommendations. Please contact the bot owner for assistance."
	msgTryAgain     = "There was an error when fetching your recommendations. If this issue persists, please contact the bot owner for assistance."
)

// Message returns the user-facing text for a failed result.
func (r Result) Message() string {
	switch r.Kind {
	case KindOK:
		if len(r.Recommendations) == 0 {
			return fmt.Sprintf("No recommendations found for '%s'.", r.Search)
		}
		return ""
	case KindInvalidInput:
		if errors.Is(r.Err, ErrInvalidMode) {
			return "Invalid mode. Choose 'user' or 'anime'."
		}
		return "Please enter a username or anime title."
	case KindInvalidCredential:
		return msgContactOwner
	case KindRateLimited:
		return "The bot is currently rate limited. Please try again later."
	case KindSubjectNotFound:
		if r.Mode == domain.ModeAnime {
			return fmt.Sprintf("Anime '%s' not found. Please check the title and try again.", r.Search)
		}
		return fmt.Sprintf("User '%s' not found. Please check the username and try again.", r.Search)
	default:
		return msgTryAgain
	}
}

// ServiceConfig tunes the recommendation service.
type ServiceConfig struct {
	Limit             int
	RequestsPerMinute int // 0 disables the local limiter
	RateLimitCooldown time.Duration
}

// Service answers recommendation requests. It is safe for concurrent use.
type Service struct {
	recommender Recommender
	metadata    MetadataSource
	cfg         ServiceConfig
	limiter     *rate.Limiter
	log         *slog.Logger
	now         func() time.Time

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewService creates a service.
func NewService(recommender Recommender, metadata MetadataSource, cfg ServiceConfig) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	s := &Service{
		recommender: recommender,
		metadata:    metadata,
		cfg:         cfg,
		log:         slog.Default(),
		now:         time.Now,
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}
	return s
}

// Recommend runs one request end to end. Rate limiting never blocks: a
// throttled request returns KindRateLimited immediately.
func (s *Service) Recommend(ctx context.Context, mode, search string) Result {
	start := s.now()
	res := s.recommend(ctx, strings.TrimSpace(mode), strings.TrimSpace(search))
	res.Elapsed = s.now().Sub(start)

	modeLabel := string(res.Mode)
	if modeLabel == "" {
		modeLabel = "invalid"
	}
	metrics.RecommendationsTotal.WithLabelValues(modeLabel, res.Kind.String()).Inc()
	metrics.RecommendationLatency.WithLabelValues(modeLabel).Observe(res.Elapsed.Seconds())

	switch res.Kind {
	case KindOK:
		s.log.Info(fmt.Sprintf("Responded to '%s' in %s mode in %.2f seconds", res.Search, res.Mode, res.Elapsed.Seconds()),
			"results", len(res.Recommendations))
	case KindInvalidInput, KindSubjectNotFound:
		s.log.Info("Recommendation request rejected", "kind", res.Kind, "mode", mode, "search", res.Search, "error", res.Err)
	case KindRateLimited:
		s.log.Warn("Recommendation request rate limited", "mode", res.Mode, "search", res.Search, "error", res.Err)
	default:
		s.log.Error("Recommendation request failed", "kind", res.Kind, "mode", res.Mode, "search", res.Search, "error", res.Err)
	}
	return res
}

func (s *Service) recommend(ctx context.Context, rawMode, search string) Result {
	res := Result{Search: search}

	mode, err := domain.ParseMode(rawMode)
	if err != nil {
		res.Kind, res.Err = KindInvalidInput, fmt.Errorf("%w: %q", ErrInvalidMode, rawMode)
		return res
	}
	res.Mode = mode
	if search == "" {
		res.Kind, res.Err = KindInvalidInput, errors.New("empty search string")
		return res
	}

	if err := s.admit(); err != nil {
		res.Kind, res.Err = KindRateLimited, err
		return res
	}

	candidates, err := s.recommender.Run(ctx, NewQuery(mode, search, s.cfg.Limit))
	if err != nil {
		res.Kind, res.Err = s.classify(err), err
		return res
	}

	table, err := s.metadata.Load(ctx)
	if err != nil {
		res.Kind, res.Err = KindFailed, err
		return res
	}

	recs, err := Merge(candidates, table, s.cfg.Limit)
	if err != nil {
		res.Kind, res.Err = s.classify(err), err
		return res
	}

	res.Kind, res.Recommendations = KindOK, recs
	return res
}

// admit applies the cooldown window and the local limiter.
func (s *Service) admit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.cooldownUntil) {
		return fmt.Errorf("%w: cooling down for %s", ErrRateLimitExceeded, s.cooldownUntil.Sub(now).Round(time.Second))
	}
	if s.limiter != nil && !s.limiter.AllowN(now, 1) {
		return fmt.Errorf("%w: local request limit reached", ErrRateLimitExceeded)
	}
	return nil
}

func (s *Service) classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrRateLimitExceeded):
		s.mu.Lock()
		s.cooldownUntil = s.now().Add(s.cfg.RateLimitCooldown)
		s.mu.Unlock()
		return KindRateLimited
	case errors.Is(err, ErrSubjectNotFound):
		return KindSubjectNotFound
	case errors.Is(err, ErrIncompleteJoin):
		return KindIncompleteJoin
	default:
		return KindFailed
	}
}
