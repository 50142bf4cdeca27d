package service

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/policy"
	"github.com/sifan077/PowerQR/internal/app/repository"
	"github.com/sifan077/PowerQR/internal/app/shortcode"
	"go.uber.org/zap"
)

// Outcome is the terminal state of a resolution.
type Outcome string

const (
	OutcomeResolved         Outcome = "resolved"
	OutcomeDenied           Outcome = "denied"
	OutcomePasswordRequired Outcome = "password_required"
	OutcomeNotFound         Outcome = "not_found"
)

// ResolveRequest is one attempt to follow a short code.
type ResolveRequest struct {
	ShortCode     string
	SourceAddress string
	UserAgent     string
	Referer       string
	Password      string
}

// Resolution describes what the caller should do next.
type Resolution struct {
	Outcome     Outcome
	Destination string
	Reason      policy.Reason
	// WrongPassword is set when a password was supplied and rejected.
	WrongPassword bool
	Mapping       *model.Mapping
	Visit         *model.Visit
}

// ResolverDeps groups the collaborators of a Resolver.
type ResolverDeps struct {
	Logger   *zap.Logger
	Mappings repository.MappingRepository
	Recorder *Recorder
	Observer Observer
	Now      func() time.Time
}

// Resolver turns a short code into a destination, enforcing access policy and recording visits.
type Resolver struct {
	logger   *zap.Logger
	mappings repository.MappingRepository
	recorder *Recorder
	observer Observer
	now      func() time.Time
}

// NewResolver builds a Resolver.
func NewResolver(deps ResolverDeps) *Resolver {
	r := &Resolver{
		logger:   deps.Logger,
		mappings: deps.Mappings,
		recorder: deps.Recorder,
		observer: deps.Observer,
		now:      deps.Now,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolve runs lookup, policy, password gate and recording in that order.
// The error return is reserved for store failures; denials are outcomes.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	res, err := r.resolve(ctx, req)
	if err == nil {
		r.observer.ObserveResolution(string(res.Outcome))
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	code := req.ShortCode
	if len(code) > model.MaxShortCodeLength || !shortcode.Valid(code) {
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	m, err := r.mappings.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return Resolution{Outcome: OutcomeNotFound}, nil
		}
		return Resolution{}, storeError("resolve "+code, err)
	}

	if d := policy.Evaluate(m, r.now()); !d.Allowed {
		r.logBlocked(code, m.ID, d.Reason)
		return Resolution{Outcome: OutcomeDenied, Reason: d.Reason, Mapping: m}, nil
	}

	if m.HasPassword() {
		if req.Password == "" {
			return Resolution{Outcome: OutcomePasswordRequired, Mapping: m}, nil
		}
		if !VerifyPassword(m.PasswordHash, req.Password) {
			return Resolution{Outcome: OutcomePasswordRequired, WrongPassword: true, Mapping: m}, nil
		}
	}

	visit, err := r.recorder.Record(ctx, m, VisitContext{
		SourceAddress: req.SourceAddress,
		UserAgent:     req.UserAgent,
		Referer:       req.Referer,
	})
	if err != nil {
		var denied *policy.DeniedError
		if errors.As(err, &denied) {
			r.logBlocked(code, m.ID, denied.Reason)
			return Resolution{Outcome: OutcomeDenied, Reason: denied.Reason, Mapping: m}, nil
		}
		// Deleted between lookup and the locked write.
		if errors.Is(err, ErrMappingNotFound) {
			return Resolution{Outcome: OutcomeNotFound}, nil
		}
		return Resolution{}, err
	}

	r.logger.Info("redirect success",
		zap.String("code", code),
		zap.String("mapping_id", m.ID),
		zap.Bool("unique", visit.IsUnique))

	return Resolution{
		Outcome:     OutcomeResolved,
		Destination: m.Destination,
		Mapping:     m,
		Visit:       visit,
	}, nil
}

func (r *Resolver) logBlocked(code, mappingID string, reason policy.Reason) {
	r.logger.Info("redirect blocked",
		zap.String("code", code),
		zap.String("mapping_id", mappingID),
		zap.String("reason", string(reason)))
}
