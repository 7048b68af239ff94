package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/target/extranet-gate/internal/domain/access"
	domainauth "github.com/target/extranet-gate/internal/domain/auth"
)

// Decision is the outcome of authorizing a request against the rule set.
type Decision int

const (
	// DecisionAllow lets the request through.
	DecisionAllow Decision = iota
	// DecisionUnauthenticated means the request needs a (stronger) login
	// before it can be allowed; the caller sends the browser to the portal.
	DecisionUnauthenticated
	// DecisionSecondFactor means the session is valid but the target
	// demands a completed second factor.
	DecisionSecondFactor
	// DecisionDeny refuses the request; more authentication will not help.
	DecisionDeny
)

// String returns the log spelling of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionSecondFactor:
		return "second_factor"
	default:
		return "deny"
	}
}

// PolicyServiceOptions groups dependencies for PolicyService.
type PolicyServiceOptions struct {
	// RulesPath is the JSON rules file to load and watch.
	RulesPath string
	Logger    *slog.Logger
}

// PolicyService evaluates access rules against sessions and target
// domains. The active rule set is an immutable snapshot behind an atomic
// pointer, so authorization is lock-free and torn reads are impossible;
// Reload swaps in a freshly validated snapshot.
type PolicyService struct {
	path    string
	logger  *slog.Logger
	rules   atomic.Pointer[access.RuleSet]
	modTime atomic.Int64
}

// NewPolicyService loads the rules file and returns a ready service.
func NewPolicyService(opts PolicyServiceOptions) (*PolicyService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &PolicyService{path: opts.RulesPath, logger: logger}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStaticPolicyService wraps a fixed rule set; Reload is a no-op.
// Useful for tests and for configurations without a rules file.
func NewStaticPolicyService(rs *access.RuleSet) *PolicyService {
	p := &PolicyService{logger: slog.Default()}
	p.rules.Store(rs)
	return p
}

// Reload re-reads the rules file, validates it, and atomically swaps the
// active snapshot. On any failure the previous snapshot stays in effect.
func (p *PolicyService) Reload() error {
	if p.path == "" {
		return nil
	}

	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("stat rules file: %w", err)
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var rules []access.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return fmt.Errorf("parse rules file %s: %w", p.path, err)
	}

	rs := access.NewRuleSet(rules)
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("validate rules file %s: %w", p.path, err)
	}

	p.rules.Store(rs)
	p.modTime.Store(info.ModTime().UnixNano())
	p.logger.Info("access rules loaded", "path", p.path, "rules", rs.Len())
	return nil
}

// Watch polls the rules file at the given interval and reloads it when its
// modification time changes. Load failures keep the last good snapshot.
// Watch blocks until the context is canceled.
func (p *PolicyService) Watch(ctx context.Context, interval time.Duration) {
	if p.path == "" || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(p.path)
			if err != nil {
				p.logger.Error("stat access rules file", "path", p.path, "error", err)
				continue
			}
			if info.ModTime().UnixNano() == p.modTime.Load() {
				continue
			}
			if err := p.Reload(); err != nil {
				p.logger.Error("reload access rules", "path", p.path, "error", err)
			}
		}
	}
}

// Snapshot returns the active rule set.
func (p *PolicyService) Snapshot() *access.RuleSet {
	return p.rules.Load()
}

// RequiredLevel returns the raw policy level the rules assign to the
// session and target domain.
func (p *PolicyService) RequiredLevel(session domainauth.Session, domain string) access.Level {
	return p.rules.Load().Evaluate(session, domain)
}

// Authorize evaluates the rules for the session against the target domain
// and folds the result with the session's authentication level. The zero
// Session stands for an anonymous request.
func (p *PolicyService) Authorize(session domainauth.Session, domain string) Decision {
	level := p.rules.Load().Evaluate(session, domain)
	switch level {
	case access.Bypass:
		return DecisionAllow
	case access.Deny:
		return DecisionDeny
	}

	have := session.Level()
	if have >= level.RequiredLevel() {
		return DecisionAllow
	}
	if have == domainauth.LevelNone {
		return DecisionUnauthenticated
	}
	return DecisionSecondFactor
}
