package amqp

import (
	"context"

	"presupuesto/internal/ledger"
)

// Publisher is the part of Client the notifier needs.
type Publisher interface {
	PublishMonthChanged(ctx context.Context, msg *MonthChangedMessage) error
}

// Notifier forwards ledger changes to the broker.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) MonthChanged(ctx context.Context, ev ledger.ChangeEvent) error {
	return n.pub.PublishMonthChanged(ctx, &MonthChangedMessage{
		Month:     ev.Month,
		Operation: ev.Operation,
		Kind:      ev.Kind,
		EntryID:   ev.EntryID,
		Version:   ev.Version,
		Timestamp: ev.At,
	})
}
