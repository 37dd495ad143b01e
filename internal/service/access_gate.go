package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/logger"
)

// AccessGate answers whether a principal may use administrative operations.
// A store error is returned to the caller, which must deny access, and is
// never cached.
type AccessGate struct {
	repo     domain.AdminRepository
	useCache bool

	mu    sync.RWMutex
	cache map[int64]bool
}

// NewAccessGate creates a gate. With useCache, answers are kept for the
// process lifetime and dropped by Grant, Revoke and Invalidate.
func NewAccessGate(repo domain.AdminRepository, useCache bool) *AccessGate {
	return &AccessGate{
		repo:     repo,
		useCache: useCache,
		cache:    make(map[int64]bool),
	}
}

// CheckAdmin reports whether principal is on the allow-list. A store error
// is returned wrapped in domain.ErrStoreUnavailable and is not cached.
func (g *AccessGate) CheckAdmin(ctx context.Context, principal int64) (bool, error) {
	if g.useCache {
		g.mu.RLock()
		ok, hit := g.cache[principal]
		g.mu.RUnlock()
		if hit {
			return ok, nil
		}
	}

	ok, err := g.repo.Exists(ctx, principal)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("check admin %d: %w: %w", principal, domain.ErrStoreUnavailable, err)
		}
		return false, err
	}

	if g.useCache {
		g.mu.Lock()
		g.cache[principal] = ok
		g.mu.Unlock()
	}
	return ok, nil
}

// Grant adds principal to the allow-list. It reports whether the principal
// was newly added.
func (g *AccessGate) Grant(ctx context.Context, principal int64, username string) (bool, error) {
	added, err := g.repo.Add(ctx, principal, username)
	g.Invalidate(principal)
	if err != nil {
		logger.ErrorLog(ctx, "Grant admin %d failed: %v", principal, err)
		return false, err
	}
	if added {
		logger.InfoLog(ctx, "Granted admin to %d", principal)
	}
	return added, nil
}

func (g *AccessGate) Revoke(ctx context.Context, principal int64) error {
	err := g.repo.Remove(ctx, principal)
	g.Invalidate(principal)
	if err != nil {
		logger.ErrorLog(ctx, "Revoke admin %d failed: %v", principal, err)
		return err
	}
	logger.InfoLog(ctx, "Revoked admin from %d", principal)
	return nil
}

func (g *AccessGate) Admins(ctx context.Context) ([]domain.AdminPrincipal, error) {
	return g.repo.List(ctx)
}

// Invalidate drops the cached answer for principal.
func (g *AccessGate) Invalidate(principal int64) {
	g.mu.Lock()
	delete(g.cache, principal)
	g.mu.Unlock()
}

// InvalidateAll drops every cached answer.
func (g *AccessGate) InvalidateAll() {
	g.mu.Lock()
	g.cache = make(map[int64]bool)
	g.mu.Unlock()
}
