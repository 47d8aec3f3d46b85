package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Method identifies one of the supported login mechanisms.
type Method string

const (
	// MethodSSO authenticates through an external single-sign-on provider.
	MethodSSO Method = "SSO"
	// MethodAD authenticates against the corporate directory.
	MethodAD Method = "AD"
	// MethodLocal authenticates with a locally stored password hash.
	MethodLocal Method = "LOCAL"
)

// DefaultPriority is the canonical method ordering used when no explicit
// priority is configured: SSO first, then AD, then LOCAL.
var DefaultPriority = []Method{MethodSSO, MethodAD, MethodLocal}

var (
	// ErrUnknownMethod reports a method string outside {SSO, AD, LOCAL}.
	ErrUnknownMethod = errors.New("unknown login method")
	// ErrNoMethodEnabled is returned when a policy would end up with an
	// empty enabled-method set.
	ErrNoMethodEnabled = errors.New("at least one login method must be enabled")
	// ErrLastMethodDisable rejects disabling the only remaining method.
	ErrLastMethodDisable = errors.New("cannot disable the last enabled login method")
	// ErrInvalidPriority reports a priority list that is empty, contains
	// duplicates, or references a method that is not enabled.
	ErrInvalidPriority = errors.New("invalid method priority")
	// ErrNotFound is returned by stores when no active policy exists.
	ErrNotFound = errors.New("login policy not found")
)

// Parse converts a raw string into a [Method].
func Parse(s string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(s))) {
	case MethodSSO:
		return MethodSSO, nil
	case MethodAD:
		return MethodAD, nil
	case MethodLocal:
		return MethodLocal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Valid reports whether m is one of the three supported methods.
func (m Method) Valid() bool {
	return m == MethodSSO || m == MethodAD || m == MethodLocal
}

// Policy is an immutable login policy value. All update operations return
// a derived copy; two invariants hold at every observable point:
//
//   - the enabled-method set is never empty
//   - every priority entry is a member of the enabled set, without duplicates
//
// Construct policies through [New], [Default], or [FromRecord]. The zero
// Policy is invalid and must not be used.
type Policy struct {
	id        string
	name      string
	enabled   []Method
	priority  []Method
	active    bool
	createdBy string
	createdAt time.Time
	updatedBy string
	updatedAt time.Time
}

// Record is the exported, serializable form of a [Policy]. Stores persist
// Records and rebuild Policies with [FromRecord], which re-validates the
// invariants on the way back in.
type Record struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	EnabledMethods []Method  `json:"enabled_methods"`
	Priority       []Method  `json:"priority"`
	Active         bool      `json:"active"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedBy      string    `json:"updated_by,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// New builds a validated Policy. An empty priority derives the canonical
// [DefaultPriority] filtered to the enabled set.
func New(id, name string, enabled, priority []Method, by string, now time.Time) (Policy, error) {
	enabled, err := normalizeEnabled(enabled)
	if err != nil {
		return Policy{}, err
	}

	if len(priority) == 0 {
		priority = derivePriority(DefaultPriority, enabled)
	} else if err := validatePriority(priority, enabled); err != nil {
		return Policy{}, err
	}

	return Policy{
		id:        id,
		name:      name,
		enabled:   cloneMethods(enabled),
		priority:  cloneMethods(priority),
		active:    true,
		createdBy: by,
		createdAt: now,
		updatedBy: by,
		updatedAt: now,
	}, nil
}

// Default is the policy the system falls back to before provisioning has
// written one: every method enabled, canonical priority.
func Default(id string, now time.Time) Policy {
	p, _ := New(id, "default", []Method{MethodSSO, MethodAD, MethodLocal}, nil, "SYSTEM", now)
	return p
}

// FromRecord rebuilds a Policy from its persisted form, re-validating
// both invariants.
func FromRecord(r Record) (Policy, error) {
	enabled, err := normalizeEnabled(r.EnabledMethods)
	if err != nil {
		return Policy{}, err
	}
	priority := r.Priority
	if len(priority) == 0 {
		priority = derivePriority(DefaultPriority, enabled)
	} else if err := validatePriority(priority, enabled); err != nil {
		return Policy{}, err
	}

	return Policy{
		id:        r.ID,
		name:      r.Name,
		enabled:   cloneMethods(enabled),
		priority:  cloneMethods(priority),
		active:    r.Active,
		createdBy: r.CreatedBy,
		createdAt: r.CreatedAt,
		updatedBy: r.UpdatedBy,
		updatedAt: r.UpdatedAt,
	}, nil
}

// Record returns the serializable form of p.
func (p Policy) Record() Record {
	return Record{
		ID:             p.id,
		Name:           p.name,
		EnabledMethods: cloneMethods(p.enabled),
		Priority:       cloneMethods(p.priority),
		Active:         p.active,
		CreatedBy:      p.createdBy,
		CreatedAt:      p.createdAt,
		UpdatedBy:      p.updatedBy,
		UpdatedAt:      p.updatedAt,
	}
}

// ID returns the policy identifier.
func (p Policy) ID() string { return p.id }

// Name returns the policy display name.
func (p Policy) Name() string { return p.name }

// Active reports whether the policy is the one currently in force.
func (p Policy) Active() bool { return p.active }

// UpdatedAt returns the timestamp of the last derive.
func (p Policy) UpdatedAt() time.Time { return p.updatedAt }

// UpdatedBy returns the actor recorded by the last derive.
func (p Policy) UpdatedBy() string { return p.updatedBy }

// EnabledMethods returns a copy of the enabled-method set in its stored order.
func (p Policy) EnabledMethods() []Method { return cloneMethods(p.enabled) }

// Priority returns a copy of the method priority order.
func (p Policy) Priority() []Method { return cloneMethods(p.priority) }

// IsMethodEnabled reports whether m is in the enabled set.
func (p Policy) IsMethodEnabled(m Method) bool {
	return containsMethod(p.enabled, m)
}

// EnabledByPriority returns every enabled method in presentation order:
// priority entries first, then enabled methods missing from the
// priority list in canonical order. The second group exists because
// [Policy.WithMethodEnabled] leaves the priority untouched; a
// re-enabled method must still be offered to users.
func (p Policy) EnabledByPriority() []Method {
	out := make([]Method, 0, len(p.enabled))
	for _, m := range p.priority {
		if containsMethod(p.enabled, m) {
			out = append(out, m)
		}
	}
	for _, m := range DefaultPriority {
		if containsMethod(p.enabled, m) && !containsMethod(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// PrimaryMethod returns the highest-priority method that is also enabled.
// The membership re-check is deliberate: even if a stored priority drifted
// out of sync with the enabled set, a disabled method is never primary.
func (p Policy) PrimaryMethod() (Method, error) {
	for _, m := range p.priority {
		if containsMethod(p.enabled, m) {
			return m, nil
		}
	}
	for _, m := range DefaultPriority {
		if containsMethod(p.enabled, m) {
			return m, nil
		}
	}
	return "", ErrNoMethodEnabled
}

// WithMethodEnabled derives a policy with m added to the enabled set.
// Idempotent; the priority order is left untouched, so a re-enabled method
// only becomes primary again if it is still listed there.
func (p Policy) WithMethodEnabled(m Method, by string, now time.Time) (Policy, error) {
	if !m.Valid() {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	if containsMethod(p.enabled, m) {
		return p, nil
	}

	out := p
	out.enabled = append(cloneMethods(p.enabled), m)
	out.priority = cloneMethods(p.priority)
	out.updatedBy = by
	out.updatedAt = now
	return out, nil
}

// WithMethodDisabled derives a policy with m removed from the enabled set
// and filtered out of the priority order. Disabling the last enabled
// method fails with [ErrLastMethodDisable].
func (p Policy) WithMethodDisabled(m Method, by string, now time.Time) (Policy, error) {
	if !m.Valid() {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	if !containsMethod(p.enabled, m) {
		return p, nil
	}
	if len(p.enabled) == 1 {
		return Policy{}, ErrLastMethodDisable
	}

	out := p
	out.enabled = removeMethod(p.enabled, m)
	out.priority = removeMethod(p.priority, m)
	if len(out.priority) == 0 {
		out.priority = derivePriority(DefaultPriority, out.enabled)
	}
	out.updatedBy = by
	out.updatedAt = now
	return out, nil
}

// WithEnabledMethods derives a policy with a wholesale replacement of the
// enabled set. The existing priority is filtered to the new set; methods
// newly enabled are appended in canonical order so the priority stays
// total over the enabled set.
func (p Policy) WithEnabledMethods(enabled []Method, by string, now time.Time) (Policy, error) {
	enabled, err := normalizeEnabled(enabled)
	if err != nil {
		return Policy{}, err
	}

	priority := make([]Method, 0, len(enabled))
	for _, m := range p.priority {
		if containsMethod(enabled, m) {
			priority = append(priority, m)
		}
	}
	for _, m := range DefaultPriority {
		if containsMethod(enabled, m) && !containsMethod(priority, m) {
			priority = append(priority, m)
		}
	}

	out := p
	out.enabled = cloneMethods(enabled)
	out.priority = priority
	out.updatedBy = by
	out.updatedAt = now
	return out, nil
}

// WithPriority derives a policy with a new priority order. Every entry
// must be an enabled method and appear at most once.
func (p Policy) WithPriority(priority []Method, by string, now time.Time) (Policy, error) {
	if err := validatePriority(priority, p.enabled); err != nil {
		return Policy{}, err
	}

	out := p
	out.priority = cloneMethods(priority)
	out.updatedBy = by
	out.updatedAt = now
	return out, nil
}

// WithName derives a policy with a new display name.
func (p Policy) WithName(name, by string, now time.Time) Policy {
	out := p
	out.name = name
	out.updatedBy = by
	out.updatedAt = now
	return out
}

func normalizeEnabled(enabled []Method) ([]Method, error) {
	out := make([]Method, 0, len(enabled))
	for _, m := range enabled {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
		}
		if !containsMethod(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMethodEnabled
	}
	return out, nil
}

func validatePriority(priority, enabled []Method) error {
	if len(priority) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPriority)
	}
	seen := make(map[Method]bool, len(priority))
	for _, m := range priority {
		if !m.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownMethod, m)
		}
		if seen[m] {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidPriority, m)
		}
		seen[m] = true
		if !containsMethod(enabled, m) {
			return fmt.Errorf("%w: %s is not enabled", ErrInvalidPriority, m)
		}
	}
	return nil
}

func derivePriority(order, enabled []Method) []Method {
	out := make([]Method, 0, len(enabled))
	for _, m := range order {
		if containsMethod(enabled, m) {
			out = append(out, m)
		}
	}
	return out
}

func containsMethod(list []Method, m Method) bool {
	for _, v := range list {
		if v == m {
			return true
		}
	}
	return false
}

func removeMethod(list []Method, m Method) []Method {
	out := make([]Method, 0, len(list))
	for _, v := range list {
		if v != m {
			out = append(out, v)
		}
	}
	return out
}

func cloneMethods(list []Method) []Method {
	if len(list) == 0 {
		return nil
	}
	out := make([]Method, len(list))
	copy(out, list)
	return out
}
