// Package insight wraps a remote market-commentary generator behind a
// cache and a quota cooldown. Selection order is fixed: an armed cooldown
// serves a canned line, a fresh cache entry serves the cached text, and
// only then is the generator called.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

const (
	CacheTTL    = 30 * time.Minute
	CooldownTTL = time.Hour
)

// ErrQuota marks generator failures caused by rate or quota exhaustion.
// Wrapping errors with it arms the cooldown.
var ErrQuota = errors.New("generator quota exhausted")

// Generator produces commentary text for a given VIP level.
type Generator interface {
	Generate(ctx context.Context, vipLevel int) (string, error)
}

// Cache stores commentary per VIP level and the shared cooldown flag.
// Get returns ("", nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	CooldownActive(ctx context.Context) (bool, error)
	ArmCooldown(ctx context.Context, ttl time.Duration) error
}

var fallbackPool = []string{
	"Markets are consolidating today. Staying the course with your plan keeps daily returns compounding.",
	"Volatility is elevated this session. Fixed daily yields are unaffected by intraday swings.",
	"Institutional inflows remain steady this week. A good window to review your tier allocation.",
	"Liquidity is thin ahead of the weekend. Scheduled payouts continue as normal.",
	"On-chain activity is trending up. Consistent daily claims remain the most reliable strategy.",
}

type Service struct {
	gen   Generator
	cache Cache
	log   *slog.Logger
}

func NewService(gen Generator, cache Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{gen: gen, cache: cache, log: log}
}

func cacheKey(vipLevel int) string {
	return fmt.Sprintf("insight:v%d", vipLevel)
}

// Commentary returns market commentary for the given VIP level. It never
// returns an error to the caller; any failure degrades to a canned line.
func (s *Service) Commentary(ctx context.Context, vipLevel int) string {
	cooling, err := s.cache.CooldownActive(ctx)
	if err != nil {
		s.log.Warn("insight cooldown check failed", "error", err)
	}
	if cooling {
		return s.fallback()
	}

	key := cacheKey(vipLevel)
	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("insight cache read failed", "error", err)
	} else if cached != "" {
		return cached
	}

	text, err := s.gen.Generate(ctx, vipLevel)
	if err != nil || text == "" {
		if errors.Is(err, ErrQuota) {
			if armErr := s.cache.ArmCooldown(ctx, CooldownTTL); armErr != nil {
				s.log.Warn("insight cooldown arm failed", "error", armErr)
			}
		}
		if err != nil {
			s.log.Warn("insight generation failed", "error", err)
		}
		return s.fallback()
	}

	if err := s.cache.Set(ctx, key, text, CacheTTL); err != nil {
		s.log.Warn("insight cache write failed", "error", err)
	}
	return text
}

// fallback picks a canned line. The package-level rand source is used
// because Commentary runs concurrently across request handlers.
func (s *Service) fallback() string {
	return fallbackPool[rand.Intn(len(fallbackPool))]
}
