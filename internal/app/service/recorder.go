package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sifan077/PowerQR/internal/app/fingerprint"
	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/policy"
	"github.com/sifan077/PowerQR/internal/app/repository"
	"github.com/sifan077/PowerQR/internal/app/useragent"
	"go.uber.org/zap"
)

const (
	defaultRecordTimeout = 5 * time.Second
	maxAddressLength     = 64
	maxRefererLength     = 2048
)

// VisitContext describes the client behind a resolution.
type VisitContext struct {
	SourceAddress string
	UserAgent     string
	Referer       string
}

// RecorderDeps groups the collaborators of a Recorder. Only Visits is required.
type RecorderDeps struct {
	Logger     *zap.Logger
	Visits     repository.VisitRepository
	Classifier useragent.Classifier
	Publisher  VisitPublisher
	Observer   Observer
	Timeout    time.Duration
	Now        func() time.Time
}

// Recorder persists visits and keeps the mapping counters in step with them.
type Recorder struct {
	logger     *zap.Logger
	visits     repository.VisitRepository
	classifier useragent.Classifier
	publisher  VisitPublisher
	observer   Observer
	timeout    time.Duration
	now        func() time.Time
}

// NewRecorder builds a Recorder, filling defaults for optional deps.
func NewRecorder(deps RecorderDeps) *Recorder {
	r := &Recorder{
		logger:     deps.Logger,
		visits:     deps.Visits,
		classifier: deps.Classifier,
		publisher:  deps.Publisher,
		observer:   deps.Observer,
		timeout:    deps.Timeout,
		now:        deps.Now,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.classifier == nil {
		r.classifier = useragent.New()
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if r.timeout <= 0 {
		r.timeout = defaultRecordTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Record stores one visit for m. The policy is re-evaluated on the locked row, so a
// concurrent quota or status change surfaces as *policy.DeniedError and nothing is written.
// On success m carries the committed counters.
//
// The write is detached from ctx cancellation: once started it runs to commit or
// rollback within the recorder's own timeout.
func (r *Recorder) Record(ctx context.Context, m *model.Mapping, vc VisitContext) (*model.Visit, error) {
	start := time.Now()
	now := r.now().UTC()
	class := r.classifier.Classify(vc.UserAgent)

	visit := &model.Visit{
		MappingID:     m.ID,
		SourceAddress: model.Clip(vc.SourceAddress, maxAddressLength),
		UserAgent:     strings.ToValidUTF8(vc.UserAgent, "\uFFFD"),
		Referer:       model.Clip(vc.Referer, maxRefererLength),
		DeviceClass:   class.DeviceClass,
		Browser:       class.Browser,
		OS:            class.OS,
		Success:       true,
		Fingerprint:   fingerprint.Fingerprint(vc.SourceAddress, vc.UserAgent),
		CreatedAt:     now,
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	committed, err := r.visits.Record(writeCtx, visit, func(locked *model.Mapping) error {
		return policy.Evaluate(locked, now).Err()
	})
	if err != nil {
		var denied *policy.DeniedError
		if errors.As(err, &denied) {
			return nil, denied
		}
		return nil, storeError("record visit", err)
	}
	*m = *committed

	r.observer.ObserveVisit(visit.IsUnique, time.Since(start))
	r.publish(visit, m)
	return visit, nil
}

func (r *Recorder) publish(visit *model.Visit, m *model.Mapping) {
	if r.publisher == nil {
		return
	}
	event := model.VisitRecorded{
		ID:          visit.ID,
		MappingID:   visit.MappingID,
		ShortCode:   m.Code(),
		DeviceClass: visit.DeviceClass,
		IsUnique:    visit.IsUnique,
		Timestamp:   visit.CreatedAt,
	}
	if err := r.publisher.Publish(event); err != nil {
		r.logger.Warn("failed to publish visit event",
			zap.String("visit_id", visit.ID),
			zap.String("mapping_id", visit.MappingID),
			zap.Error(err))
	}
}
