package pos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogStore is the stock-bearing collaborator consumed by Checkout.
// *Database satisfies it.
type CatalogStore interface {
	StockLevel(id int64) (int, error)
	ReserveStock(id int64, qty int) error
}

// SaleLedger is the append-only record of committed sales. *Database
// satisfies it.
type SaleLedger interface {
	InsertSale(s *Sale) (int64, error)
}

// Session carries the cashier context for one commit call. Now is overridable
// for tests and defaults to time.Now.
type Session struct {
	CustomerName string
	EmployeeID   int64
	Now          func() time.Time
}

func (s Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// LineStatus is the terminal state of one cart line after commit.
type LineStatus int

const (
	// LineCommitted: stock reserved, sale persisted, listeners notified.
	LineCommitted LineStatus = iota
	// LineRejected: nothing was consumed for this line.
	LineRejected
	// LinePersistFailed: stock was reserved but the ledger write failed. The
	// reservation is not restored.
	LinePersistFailed
)

func (s LineStatus) String() string {
	switch s {
	case LineCommitted:
		return "committed"
	case LineRejected:
		return "rejected"
	case LinePersistFailed:
		return "persist-failed"
	}
	return fmt.Sprintf("LineStatus(%d)", int(s))
}

// LineResult pairs a cart line with its outcome. Sale is set only for
// committed lines, Err only for the others.
type LineResult struct {
	Line   CartLine
	Status LineStatus
	Sale   *Sale
	Err    error
}

// BatchResult reports every line of one commit call, in cart order.
type BatchResult struct {
	Results []LineResult
}

// Committed counts successfully persisted lines.
func (b BatchResult) Committed() int {
	n := 0
	for _, r := range b.Results {
		if r.Status == LineCommitted {
			n++
		}
	}
	return n
}

// Failed counts rejected and persist-failed lines.
func (b BatchResult) Failed() int { return len(b.Results) - b.Committed() }

// CommittedTotal sums the totals of committed lines.
func (b BatchResult) CommittedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range b.Results {
		if r.Status == LineCommitted {
			total = total.Add(r.Sale.Total)
		}
	}
	return total
}

// Checkout drives a cart through per-line reserve, persist and notify. Each
// line is its own unit of work: there is no cross-line transaction and no
// compensation of a reservation whose persist step failed.
type Checkout struct {
	catalog  CatalogStore
	ledger   SaleLedger
	notifier *Notifier
	log      *zap.Logger
}

func NewCheckout(catalog CatalogStore, ledger SaleLedger, notifier *Notifier, log *zap.Logger) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewNotifier(log)
	}
	return &Checkout{catalog: catalog, ledger: ledger, notifier: notifier, log: log}
}

// Notifier exposes the fan-out so callers can attach listeners.
func (c *Checkout) Notifier() *Notifier { return c.notifier }

// Commit processes the cart strictly in order, one line at a time. A bad line
// never aborts the batch; the caller gets one result per line, sufficient to
// re-present failures without re-processing successes. Only a structurally
// invalid call (empty cart, missing session context) fails outright, before
// any stock is touched.
func (c *Checkout) Commit(cart Cart, sess Session) (BatchResult, error) {
	if len(cart) == 0 {
		return BatchResult{}, ErrEmptyCart
	}
	if strings.TrimSpace(sess.CustomerName) == "" {
		return BatchResult{}, fmt.Errorf("customer name is required")
	}
	if sess.EmployeeID <= 0 {
		return BatchResult{}, fmt.Errorf("employee id must be positive")
	}

	rejected := c.preflight(cart)

	results := make([]LineResult, 0, len(cart))
	for i, line := range cart {
		if err, ok := rejected[i]; ok {
			results = append(results, LineResult{Line: line, Status: LineRejected, Err: err})
			continue
		}
		results = append(results, c.commitLine(line, sess))
	}

	batch := BatchResult{Results: results}
	c.log.Info("cart committed",
		zap.Int("lines", len(cart)),
		zap.Int("committed", batch.Committed()),
		zap.Int("failed", batch.Failed()))
	return batch, nil
}

// preflight rejects lines whose cumulative in-cart demand exceeds currently
// known stock, before any stock is touched. Purely advisory: it saves wasted
// reservation attempts but the authoritative check remains the conditional
// decrement. Peek errors other than not-found leave the line to the
// authoritative path.
func (c *Checkout) preflight(cart Cart) map[int]error {
	known := make(map[int64]int)
	missing := make(map[int64]bool)
	unknown := make(map[int64]bool)
	for _, line := range cart {
		id := line.BookID
		if _, ok := known[id]; ok || missing[id] || unknown[id] {
			continue
		}
		level, err := c.catalog.StockLevel(id)
		switch {
		case errors.Is(err, ErrNotFound):
			missing[id] = true
		case err != nil:
			c.log.Warn("stock peek failed, deferring to reservation",
				zap.Int64("book_id", id), zap.Error(err))
			unknown[id] = true
		default:
			known[id] = level
		}
	}

	rejected := make(map[int]error)
	demand := make(map[int64]int)
	for i, line := range cart {
		if missing[line.BookID] {
			rejected[i] = ErrNotFound
			continue
		}
		level, ok := known[line.BookID]
		if !ok || line.Quantity <= 0 {
			// Invalid quantities get a precise error from validation later.
			continue
		}
		if demand[line.BookID]+line.Quantity > level {
			rejected[i] = ErrInsufficientStock
			continue
		}
		demand[line.BookID] += line.Quantity
	}
	return rejected
}

// commitLine runs one line through validate → reserve → persist → notify.
func (c *Checkout) commitLine(line CartLine, sess Session) LineResult {
	quote, err := PriceLine(line)
	if err != nil {
		return LineResult{Line: line, Status: LineRejected, Err: err}
	}

	if err := c.catalog.ReserveStock(line.BookID, line.Quantity); err != nil {
		return LineResult{Line: line, Status: LineRejected, Err: err}
	}

	sale := NewSale(line, quote, sess)
	if _, err := c.ledger.InsertSale(sale); err != nil {
		// The reservation stands: re-adding the line to a new cart attempts a
		// fresh reservation against current stock. Needs operator follow-up.
		c.log.Error("sale persist failed after reservation",
			zap.Int64("book_id", line.BookID),
			zap.Int("quantity", line.Quantity),
			zap.Error(err))
		return LineResult{Line: line, Status: LinePersistFailed, Err: err}
	}

	c.notifier.Notify(sale)
	return LineResult{Line: line, Status: LineCommitted, Sale: sale}
}
