package service

import (
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
)

// Observer receives resolver and recorder measurements.
type Observer interface {
	ObserveResolution(outcome string)
	ObserveVisit(unique bool, elapsed time.Duration)
}

// VisitPublisher announces committed visits to downstream consumers.
type VisitPublisher interface {
	Publish(event model.VisitRecorded) error
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string)         {}
func (nopObserver) ObserveVisit(bool, time.Duration) {}
