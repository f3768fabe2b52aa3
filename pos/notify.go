package pos

import (
	"sync"

	"go.uber.org/zap"
)

// SaleListener is notified after a sale has been persisted to the ledger.
type SaleListener interface {
	OnSaleCreated(sale *Sale)
}

// Notifier invokes registered listeners synchronously, in registration order,
// within the same call as the commit step that produced the sale. A panicking
// listener is isolated: it never aborts the commit, the other listeners, or
// subsequent lines. Listeners registered after a sale committed never see it.
type Notifier struct {
	mu        sync.Mutex
	listeners []SaleListener
	log       *zap.Logger
}

func NewNotifier(log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{log: log}
}

// Attach registers a listener. Attaching the same listener twice is a no-op.
func (n *Notifier) Attach(l SaleListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.listeners {
		if existing == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

// Detach removes a listener; unknown listeners are ignored.
func (n *Notifier) Detach(l SaleListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.listeners {
		if existing == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// Notify delivers the sale to every listener registered at this moment.
func (n *Notifier) Notify(sale *Sale) {
	n.mu.Lock()
	listeners := make([]SaleListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, l := range listeners {
		n.dispatch(l, sale)
	}
}

func (n *Notifier) dispatch(l SaleListener, sale *Sale) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Warn("sale listener panicked",
				zap.Int64("sale_id", sale.ID),
				zap.Any("panic", r))
		}
	}()
	l.OnSaleCreated(sale)
}

// LogListener writes one log entry per committed sale.
type LogListener struct {
	Log *zap.Logger
}

func (l *LogListener) OnSaleCreated(sale *Sale) {
	l.Log.Info("sale created",
		zap.Int64("sale_id", sale.ID),
		zap.String("receipt_ref", sale.ReceiptRef.String()),
		zap.String("customer", sale.CustomerName),
		zap.Int64("book_id", sale.BookID),
		zap.Int("quantity", sale.Quantity),
		zap.String("total", sale.Total.StringFixed(2)))
}
