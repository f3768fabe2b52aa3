package pos

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Manager is a thin façade over the Database and commit pipeline, keeping CLI
// code simple.
type Manager struct {
	db       *Database
	notifier *Notifier
	checkout *Checkout
	log      *zap.Logger
}

// NewManager opens (or creates) the SQLite database at dbPath and wires the
// commit pipeline with a logging listener attached.
func NewManager(dbPath string, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	notifier := NewNotifier(log)
	notifier.Attach(&LogListener{Log: log})
	return &Manager{
		db:       db,
		notifier: notifier,
		checkout: NewCheckout(db, db, notifier, log),
		log:      log,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// ------------------ Catalog helpers ------------------

func (m *Manager) AddBook(title, author string, stock int) (int64, error) {
	return m.db.AddBook(title, author, stock)
}

func (m *Manager) GetBook(id int64) (*Book, error) { return m.db.GetBook(id) }
func (m *Manager) GetAllBooks() ([]*Book, error)   { return m.db.GetAllBooks() }
func (m *Manager) StockLevel(id int64) (int, error) {
	return m.db.StockLevel(id)
}
func (m *Manager) AddStock(id int64, qty int) error { return m.db.AddStock(id, qty) }

// ------------------ Employee helpers ------------------

func (m *Manager) AddEmployee(name, phone, role, pin string) (int64, error) {
	return m.db.AddEmployee(name, phone, role, pin)
}

func (m *Manager) GetEmployee(id int64) (*Employee, error)  { return m.db.GetEmployee(id) }
func (m *Manager) GetAllEmployees() ([]*Employee, error)    { return m.db.GetAllEmployees() }
func (m *Manager) AuthenticateEmployee(id int64, pin string) error {
	return m.db.AuthenticateEmployee(id, pin)
}

// ------------------ Sales ------------------

func (m *Manager) GetAllSales() ([]*Sale, error) { return m.db.GetAllSales() }
func (m *Manager) SalesByEmployee(employeeID int64) ([]*Sale, error) {
	return m.db.SalesByEmployee(employeeID)
}

// Commit drives the cart through the checkout pipeline.
func (m *Manager) Commit(cart Cart, sess Session) (BatchResult, error) {
	return m.checkout.Commit(cart, sess)
}

// AttachListener registers a post-commit sale listener.
func (m *Manager) AttachListener(l SaleListener) { m.notifier.Attach(l) }

// DetachListener removes a previously attached listener.
func (m *Manager) DetachListener(l SaleListener) { m.notifier.Detach(l) }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-5d %-35s %-25s %5d", b.ID, b.Title, b.Author, b.Stock)
}

// PrettySale formats a ledger row for lists.
func PrettySale(s *Sale) string {
	return fmt.Sprintf("%-5d %-20s book=%-5d emp=%-4d qty=%-3d disc=%-5s total=%8s  %s",
		s.ID, s.CustomerName, s.BookID, s.EmployeeID, s.Quantity,
		s.Discount.Mul(hundred).StringFixed(0)+"%", s.Total.StringFixed(2),
		s.SaleDate.Format("2006-01-02 15:04"))
}
