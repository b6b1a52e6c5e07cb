// Package ratelimit implements sliding-window request rate limiting over
// a shared ordered-set store.
//
// The limiter fails open: if the backing store is unreachable the request
// is allowed and the failure logged. Session and token verification
// elsewhere fail closed.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stayflow/gatekeeper/ports"
)

// Category selects which window/limit pair applies to a request.
type Category string

const (
	CategoryGlobal  Category = "global"
	CategoryAuth    Category = "auth"
	CategoryAPI     Category = "api"
	CategoryPayment Category = "payment"

	keyPrefix = "ratelimit:"
)

// Rule is a window/limit pair for one category.
type Rule struct {
	Window time.Duration
	Limit  int64
}

// defaultGlobalRule is the last-resort rule when neither the requested
// category nor CategoryGlobal is configured.
var defaultGlobalRule = Rule{Window: 15 * time.Minute, Limit: 1000}

// DefaultRules returns the built-in window/limit pairs per category.
func DefaultRules() map[Category]Rule {
	return map[Category]Rule{
		CategoryGlobal:  defaultGlobalRule,
		CategoryAuth:    {Window: 5 * time.Minute, Limit: 5},
		CategoryAPI:     {Window: time.Minute, Limit: 100},
		CategoryPayment: {Window: time.Minute, Limit: 10},
	}
}

// Result describes the outcome of a limit check.
type Result struct {
	Limited    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter checks request volume against per-category sliding windows.
type Limiter struct {
	store     ports.WindowStore
	rules     map[Category]Rule
	whitelist map[string]struct{}
	log       *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithRules replaces the default category rules.
func WithRules(rules map[Category]Rule) Option {
	return func(l *Limiter) {
		if len(rules) > 0 {
			l.rules = rules
		}
	}
}

// WithWhitelist registers IPs that bypass all checks. This is an
// operational escape hatch and must be configured explicitly.
func WithWhitelist(ips []string) Option {
	return func(l *Limiter) {
		for _, ip := range ips {
			l.whitelist[ip] = struct{}{}
		}
	}
}

// NewLimiter creates a rate limiter over the given window store.
func NewLimiter(store ports.WindowStore, log *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:     store,
		rules:     DefaultRules(),
		whitelist: make(map[string]struct{}),
		log:       log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Whitelisted reports whether an IP bypasses rate limiting.
func (l *Limiter) Whitelisted(ip string) bool {
	_, ok := l.whitelist[ip]
	return ok
}

// ruleFor resolves the rule for a category, falling back to the global
// rule and finally to the built-in default so no lookup ever yields a
// zero rule.
func (l *Limiter) ruleFor(category Category) Rule {
	if rule, ok := l.rules[category]; ok {
		return rule
	}
	if rule, ok := l.rules[CategoryGlobal]; ok {
		return rule
	}
	return defaultGlobalRule
}

// Check applies the category's rule to one dimension key ("ip:<addr>" or
// "user:<publicKey>"). Entries older than the window are pruned and the
// request is limited when the window is already at the rule's budget.
// Only allowed requests are recorded: a client retrying while limited
// regains budget as soon as its accepted requests age out of the window.
func (l *Limiter) Check(ctx context.Context, category Category, key string) Result {
	rule := l.ruleFor(category)

	now := time.Now()
	windowStart := now.Add(-rule.Window)
	storeKey := fmt.Sprintf("%s%s:%s", keyPrefix, category, key)

	count, oldest, err := l.store.Window(ctx, storeKey, windowStart)
	if err != nil {
		// Fail open.
		l.log.WarnContext(ctx, "rate limit store unreachable, allowing request",
			slog.String("key", storeKey),
			slog.Any("error", err))
		return Result{
			Limited:   false,
			Limit:     rule.Limit,
			Remaining: rule.Limit,
			ResetAt:   now.Add(rule.Window),
		}
	}

	if oldest.IsZero() {
		oldest = now
	}
	resetAt := oldest.Add(rule.Window)

	if count >= rule.Limit {
		retryAfter := time.Until(resetAt)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Result{
			Limited:    true,
			Limit:      rule.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}
	}

	// Check-then-record races between instances can briefly overshoot
	// the budget; lost-update tolerance, same as the CSRF store.
	// Key TTL runs slightly past the window so entries expire on their
	// own shortly after they stop counting.
	if err := l.store.Record(ctx, storeKey, now, rule.Window+time.Minute); err != nil {
		l.log.WarnContext(ctx, "rate limit store unreachable, request not recorded",
			slog.String("key", storeKey),
			slog.Any("error", err))
	}

	return Result{
		Limited:   false,
		Limit:     rule.Limit,
		Remaining: rule.Limit - count - 1,
		ResetAt:   resetAt,
	}
}

// CheckRequest checks both dimensions for a request: always by IP, and
// by authenticated wallet when one is present. Either dimension tripping
// limits the request. Whitelisted IPs bypass entirely.
func (l *Limiter) CheckRequest(ctx context.Context, category Category, ip, publicKey string) Result {
	if l.Whitelisted(ip) {
		rule := l.ruleFor(category)
		return Result{Limited: false, Limit: rule.Limit, Remaining: rule.Limit, ResetAt: time.Now().Add(rule.Window)}
	}

	result := l.Check(ctx, category, "ip:"+ip)
	if result.Limited {
		return result
	}

	if publicKey != "" {
		if userResult := l.Check(ctx, category, "user:"+publicKey); userResult.Limited {
			return userResult
		}
	}

	return result
}
