package usecase

import (
	"ethpool/domain"
	"ethpool/interface/exporter"

	"github.com/sirupsen/logrus"
)

// LogEmitter writes pool events to the log and counts them.
type LogEmitter struct {
	log *logrus.Entry
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{
		log: logrus.StandardLogger().WithField("type", "usecase/emitter"),
	}
}

func (emitter *LogEmitter) Emit(event *domain.Event) {
	switch event.Kind {
	case domain.EventDeposited:
		exporter.IncCounter(exporter.METRIC_DEPOSIT_COUNT)
	case domain.EventWithdrawn:
		exporter.IncCounter(exporter.METRIC_WITHDRAW_COUNT)
	case domain.EventRewardsAdded:
		exporter.IncCounter(exporter.METRIC_REWARD_COUNT)
	}

	emitter.log.WithFields(logrus.Fields{
		"event":   event.Kind,
		"account": event.Account.Hex(),
		"amount":  event.Amount.Dec(),
	}).Info("🔵 pool event")
}

// MultiEmitter fans an event out to several emitters in order.
type MultiEmitter []domain.Emitter

func (emitters MultiEmitter) Emit(event *domain.Event) {
	for _, emitter := range emitters {
		emitter.Emit(event)
	}
}
