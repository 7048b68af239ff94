// Package access contains the pure policy model for the gateway: ordered
// rules mapping target domains and subjects to a required authentication
// level. Evaluation is first-match with an implicit trailing deny.
package access

import (
	"fmt"
	"strings"

	"github.com/target/extranet-gate/internal/domain/auth"
)

// Level is the policy outcome a rule assigns to matching requests.
type Level string

const (
	// Bypass allows the request with no authentication at all.
	Bypass Level = "bypass"
	// OneFactor requires a session with primary authentication.
	OneFactor Level = "one_factor"
	// TwoFactor requires a session that also completed a second factor.
	TwoFactor Level = "two_factor"
	// Deny refuses the request regardless of authentication.
	Deny Level = "deny"
)

// UnmarshalText parses the configuration spelling of a policy level.
func (l *Level) UnmarshalText(text []byte) error {
	switch v := Level(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case Bypass, OneFactor, TwoFactor, Deny:
		*l = v
		return nil
	default:
		return fmt.Errorf("unknown policy level %q", string(text))
	}
}

// RequiredLevel maps the policy outcome onto the session level scale.
// Deny has no satisfiable level.
func (l Level) RequiredLevel() auth.AuthLevel {
	switch l {
	case Bypass:
		return auth.LevelNone
	case OneFactor:
		return auth.LevelOneFactor
	case TwoFactor:
		return auth.LevelTwoFactor
	default:
		return auth.AuthLevel(int(auth.LevelTwoFactor) + 1)
	}
}

// Subject constrains a rule to a particular user or group.
// The configuration spelling is "user:<name>" or "group:<name>".
type Subject struct {
	Kind  SubjectKind
	Value string
}

// SubjectKind discriminates user and group subjects.
type SubjectKind string

const (
	SubjectUser  SubjectKind = "user"
	SubjectGroup SubjectKind = "group"
)

// ParseSubject parses the "kind:value" configuration form.
func ParseSubject(s string) (Subject, error) {
	kind, value, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || value == "" {
		return Subject{}, fmt.Errorf("subject %q must be user:<name> or group:<name>", s)
	}
	switch SubjectKind(kind) {
	case SubjectUser, SubjectGroup:
		return Subject{Kind: SubjectKind(kind), Value: value}, nil
	default:
		return Subject{}, fmt.Errorf("subject %q has unknown kind %q", s, kind)
	}
}

// UnmarshalText lets subjects appear as plain strings in rule files.
func (s *Subject) UnmarshalText(text []byte) error {
	parsed, err := ParseSubject(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Matches reports whether the session satisfies the subject constraint.
func (s Subject) Matches(session auth.Session) bool {
	switch s.Kind {
	case SubjectUser:
		return session.Username == s.Value
	case SubjectGroup:
		return session.InGroup(s.Value)
	default:
		return false
	}
}

// Rule maps one or more domain patterns to a policy level, optionally
// constrained to subjects. A rule with no subjects applies to everyone.
type Rule struct {
	// Domains holds exact names or "*." wildcard patterns.
	Domains []string `json:"domains"`
	Policy  Level    `json:"policy"`
	// Subjects are alternatives: the rule applies when any one matches.
	Subjects []Subject `json:"subjects,omitempty"`
}

// MatchesDomain reports whether any of the rule's patterns covers domain.
func (r Rule) MatchesDomain(domain string) bool {
	for _, p := range r.Domains {
		if MatchDomain(p, domain) {
			return true
		}
	}
	return false
}

// MatchesSubject reports whether the rule's subject constraints admit the
// session. Rules without subjects match unconditionally; subject-scoped
// rules never match an anonymous request.
func (r Rule) MatchesSubject(session auth.Session) bool {
	if len(r.Subjects) == 0 {
		return true
	}
	if session.ID == "" {
		return false
	}
	for _, s := range r.Subjects {
		if s.Matches(session) {
			return true
		}
	}
	return false
}

// MatchDomain matches a target domain against a pattern. Patterns are
// either exact names or "*.base" wildcards; wildcard matches require a
// dot boundary so "*.example.com" never matches "notexample.com".
// Matching is case-insensitive.
func MatchDomain(pattern, domain string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if pattern == "" || domain == "" {
		return false
	}

	if !strings.HasPrefix(pattern, "*.") {
		return domain == pattern
	}

	base := pattern[2:]
	if base == "" || !strings.HasSuffix(domain, base) {
		return false
	}
	if len(domain) == len(base) {
		// The bare apex does not match its own wildcard.
		return false
	}
	return domain[len(domain)-len(base)-1] == '.'
}

// RuleSet is an immutable, ordered collection of rules. Evaluation walks
// the rules in declared order and stops at the first rule whose domain
// and subject constraints both match; when nothing matches the outcome
// is Deny.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet copies the given rules into an immutable set.
func NewRuleSet(rules []Rule) *RuleSet {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &RuleSet{rules: cp}
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rule list, preserving order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	cp := make([]Rule, len(rs.rules))
	copy(cp, rs.rules)
	return cp
}

// Evaluate returns the policy level for a request against domain by the
// given session. An anonymous request passes the zero Session.
func (rs *RuleSet) Evaluate(session auth.Session, domain string) Level {
	if rs == nil {
		return Deny
	}
	for _, r := range rs.rules {
		if !r.MatchesDomain(domain) {
			continue
		}
		if !r.MatchesSubject(session) {
			continue
		}
		return r.Policy
	}
	return Deny
}

// Validate checks every rule for an empty domain list or level, returning
// the first problem found. Loaders call this before publishing a set.
func (rs *RuleSet) Validate() error {
	for i, r := range rs.rules {
		if len(r.Domains) == 0 {
			return fmt.Errorf("rule %d: no domains", i)
		}
		for _, d := range r.Domains {
			if strings.TrimSpace(d) == "" {
				return fmt.Errorf("rule %d: empty domain pattern", i)
			}
		}
		switch r.Policy {
		case Bypass, OneFactor, TwoFactor, Deny:
		default:
			return fmt.Errorf("rule %d: unknown policy level %q", i, r.Policy)
		}
	}
	return nil
}
