package pos

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedEmployee(t *testing.T, db *Database) int64 {
	t.Helper()
	id, err := db.AddEmployee("Alice", "555-0101", "cashier", "1234")
	if err != nil {
		t.Fatalf("add employee: %v", err)
	}
	return id
}

func testSession() Session {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Session{
		CustomerName: "Walk-in",
		EmployeeID:   1,
		Now:          func() time.Time { return fixed },
	}
}

func TestReserveStock(t *testing.T) {
	db := tempDB(t)
	id, err := db.AddBook("Dune", "Frank Herbert", 3)
	if err != nil {
		t.Fatalf("add book: %v", err)
	}

	if err := db.ReserveStock(id, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	level, err := db.StockLevel(id)
	if err != nil {
		t.Fatalf("stock level: %v", err)
	}
	if level != 1 {
		t.Fatalf("stock = %d, want 1", level)
	}

	// More than remains: must fail and leave stock untouched.
	if err := db.ReserveStock(id, 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if level, _ = db.StockLevel(id); level != 1 {
		t.Fatalf("stock = %d after failed reserve, want 1", level)
	}

	if err := db.ReserveStock(9999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReserveStockRejectsBadQuantity(t *testing.T) {
	db := tempDB(t)
	id, _ := db.AddBook("Dune", "Frank Herbert", 3)

	for _, qty := range []int{0, -1} {
		var invalid *InvalidLineError
		if err := db.ReserveStock(id, qty); !errors.As(err, &invalid) {
			t.Fatalf("qty %d: err = %v, want InvalidLineError", qty, err)
		}
	}
	if level, _ := db.StockLevel(id); level != 3 {
		t.Fatalf("stock changed by invalid reserve")
	}
}

// TestReserveStockConcurrent races many callers for a small stock: the number
// of winners must equal the stock exactly and the counter must end at zero.
func TestReserveStockConcurrent(t *testing.T) {
	db := tempDB(t)
	const initial = 5
	id, err := db.AddBook("Last Copies", "Anon", initial)
	if err != nil {
		t.Fatalf("add book: %v", err)
	}

	const workers = 20
	var won atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := db.ReserveStock(id, 1); {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				// expected for the losers
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	if won.Load() != initial {
		t.Fatalf("winners = %d, want %d", won.Load(), initial)
	}
	level, err := db.StockLevel(id)
	if err != nil {
		t.Fatalf("stock level: %v", err)
	}
	if level != 0 {
		t.Fatalf("final stock = %d, want 0", level)
	}
}

func TestAddStock(t *testing.T) {
	db := tempDB(t)
	id, _ := db.AddBook("Dune", "Frank Herbert", 1)

	if err := db.AddStock(id, 4); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if level, _ := db.StockLevel(id); level != 5 {
		t.Fatalf("stock = %d, want 5", level)
	}

	if err := db.AddStock(id, 0); err == nil {
		t.Fatal("expected error for zero restock")
	}
	if err := db.AddStock(9999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertSaleAssignsIDAndRoundtrips(t *testing.T) {
	db := tempDB(t)
	empID := seedEmployee(t, db)
	bookID, _ := db.AddBook("Dune", "Frank Herbert", 10)

	line := CartLine{BookID: bookID, UnitPrice: mustDec("15.50"), Quantity: 2, Tier: Discount10}
	quote, err := PriceLine(line)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	sess := testSession()
	sess.EmployeeID = empID
	sale := NewSale(line, quote, sess)

	id, err := db.InsertSale(sale)
	if err != nil {
		t.Fatalf("insert sale: %v", err)
	}
	if id <= 0 || sale.ID != id {
		t.Fatalf("ledger id not assigned: id=%d sale.ID=%d", id, sale.ID)
	}

	sales, err := db.GetAllSales()
	if err != nil {
		t.Fatalf("get sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("want 1 sale, got %d", len(sales))
	}
	got := sales[0]
	if got.ID != id || got.ReceiptRef != sale.ReceiptRef || got.CustomerName != "Walk-in" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if !got.UnitPrice.Equal(mustDec("15.50")) || !got.Total.Equal(mustDec("27.90")) || !got.Discount.Equal(mustDec("0.1")) {
		t.Fatalf("monetary roundtrip mismatch: %+v", got)
	}

	byEmp, err := db.SalesByEmployee(empID)
	if err != nil {
		t.Fatalf("sales by employee: %v", err)
	}
	if len(byEmp) != 1 {
		t.Fatalf("want 1 sale for employee, got %d", len(byEmp))
	}
	if other, _ := db.SalesByEmployee(empID + 1); len(other) != 0 {
		t.Fatalf("unexpected sales for other employee")
	}
}

func TestEmployeeAuth(t *testing.T) {
	db := tempDB(t)
	id := seedEmployee(t, db)

	if err := db.AuthenticateEmployee(id, "1234"); err != nil {
		t.Fatalf("auth: %v", err)
	}
	if err := db.AuthenticateEmployee(id, "0000"); err == nil {
		t.Fatal("expected error for wrong PIN")
	}
	if err := db.AuthenticateEmployee(id+100, "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	e, err := db.GetEmployee(id)
	if err != nil {
		t.Fatalf("get employee: %v", err)
	}
	if e.Name != "Alice" || e.Role != "cashier" {
		t.Fatalf("employee mismatch: %+v", e)
	}
	if e.PINHash == "1234" {
		t.Fatal("PIN stored in clear")
	}
}

func TestGetBook(t *testing.T) {
	db := tempDB(t)
	id, _ := db.AddBook("Dune", "Frank Herbert", 2)

	b, err := db.GetBook(id)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if b.Title != "Dune" || b.Stock != 2 || b.AddedDate.IsZero() {
		t.Fatalf("book mismatch: %+v", b)
	}

	if _, err := db.GetBook(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	all, err := db.GetAllBooks()
	if err != nil {
		t.Fatalf("get all books: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 book, got %d", len(all))
	}
}
