// Package policy decides whether a mapping may resolve at a given instant.
package policy

import (
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
)

// Reason explains a denial and is shown to the visitor.
type Reason string

const (
	ReasonNotActive    Reason = "not active"
	ReasonExpired      Reason = "expired"
	ReasonQuotaReached Reason = "quota reached"
)

// Decision is the outcome of Evaluate. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the decision for a usable mapping.
var Allow = Decision{Allowed: true}

// Deny returns a denial carrying reason.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Evaluate checks status, then expiry, then quota; the first failing check wins.
func Evaluate(m *model.Mapping, now time.Time) Decision {
	if m.Status != model.StatusActive {
		return Deny(ReasonNotActive)
	}
	if m.ExpiresAt != nil && !now.Before(*m.ExpiresAt) {
		return Deny(ReasonExpired)
	}
	if m.MaxScans != nil && m.TotalScans >= *m.MaxScans {
		return Deny(ReasonQuotaReached)
	}
	return Allow
}

// DeniedError carries a denial out of code paths that can only return errors.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return "policy denied: " + string(e.Reason)
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}
