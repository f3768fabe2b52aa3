package pos

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Database provides high-level helpers around a SQLite connection. It is both
// the catalog store (books with a stock counter) and the sale ledger
// (append-only sales table).
type Database struct {
	db *sql.DB

	addBookStmt     *sql.Stmt
	addEmployeeStmt *sql.Stmt
	insertSaleStmt  *sql.Stmt
	reserveStmt     *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sql.Stmt{d.addBookStmt, d.addEmployeeStmt, d.insertSaleStmt, d.reserveStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
            added_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS employees (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'cashier',
            pin_hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            receipt_ref TEXT NOT NULL UNIQUE,
            customer_name TEXT NOT NULL,
            book_id INTEGER NOT NULL REFERENCES books(id),
            employee_id INTEGER NOT NULL REFERENCES employees(id),
            unit_price TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            discount TEXT NOT NULL,
            total TEXT NOT NULL,
            sale_date DATETIME NOT NULL,
            created_at DATETIME NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);`,
		`CREATE INDEX IF NOT EXISTS idx_sales_employee ON sales(employee_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Prepare(`INSERT INTO books(title,author,stock) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.addEmployeeStmt, err = d.db.Prepare(`INSERT INTO employees(name,phone,role,pin_hash) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	if d.insertSaleStmt, err = d.db.Prepare(`INSERT INTO sales(receipt_ref,customer_name,book_id,employee_id,unit_price,quantity,discount,total,sale_date,created_at)
        VALUES(?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	// The single atomic stock operation: decrement only when enough remains.
	if d.reserveStmt, err = d.db.Prepare(`UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// AddBook inserts a new title with an initial stock level.
func (d *Database) AddBook(title, author string, stock int) (int64, error) {
	if stock < 0 {
		return 0, fmt.Errorf("initial stock must not be negative")
	}
	res, err := d.addBookStmt.Exec(title, author, stock)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *Database) GetBook(id int64) (*Book, error) {
	var b Book
	err := d.db.QueryRow(`SELECT id,title,author,stock,added_date FROM books WHERE id=?`, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.Stock, &b.AddedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *Database) GetAllBooks() ([]*Book, error) {
	rows, err := d.db.Query(`SELECT id,title,author,stock,added_date FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Stock, &b.AddedDate); err != nil {
			return nil, err
		}
		books = append(books, &b)
	}
	return books, rows.Err()
}

// StockLevel reports the current stock counter. Advisory only: the value may
// be stale by the time the caller acts on it, so commits must still go through
// ReserveStock.
func (d *Database) StockLevel(id int64) (int, error) {
	var stock int
	err := d.db.QueryRow(`SELECT stock FROM books WHERE id=?`, id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// ReserveStock decrements stock by qty only if at least qty remains, as one
// atomic conditional update. Two callers racing for the last unit get exactly
// one success; stock never goes negative. Never retried here: retry policy
// belongs to the caller.
func (d *Database) ReserveStock(id int64, qty int) error {
	if qty <= 0 {
		return &InvalidLineError{Field: "quantity", Reason: "must be greater than zero"}
	}
	res, err := d.reserveStmt.Exec(qty, id, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: either the book vanished or not enough stock remained.
	var exists bool
	if err := d.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM books WHERE id=?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

// AddStock restocks a title. Increments are unconditional; only decrements go
// through the guarded path.
func (d *Database) AddStock(id int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("restock quantity must be greater than zero")
	}
	res, err := d.db.Exec(`UPDATE books SET stock = stock + ? WHERE id=?`, qty, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sale ledger
// ---------------------------------------------------------------------------

// InsertSale appends a sale and stamps it with the ledger-assigned id. The id
// is never predicted beforehand.
func (d *Database) InsertSale(s *Sale) (int64, error) {
	res, err := d.insertSaleStmt.Exec(
		s.ReceiptRef, s.CustomerName, s.BookID, s.EmployeeID,
		s.UnitPrice, s.Quantity, s.Discount, s.Total,
		s.SaleDate, s.CreatedAt,
	)
	if err != nil {
		return 0, &PersistError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &PersistError{Err: err}
	}
	s.ID = id
	return id, nil
}

// GetAllSales returns the ledger, newest first.
func (d *Database) GetAllSales() ([]*Sale, error) {
	return d.querySales(`SELECT id,receipt_ref,customer_name,book_id,employee_id,unit_price,quantity,discount,total,sale_date,created_at
        FROM sales ORDER BY sale_date DESC, id DESC`)
}

// SalesByEmployee returns one cashier's sales, newest first.
func (d *Database) SalesByEmployee(employeeID int64) ([]*Sale, error) {
	return d.querySales(`SELECT id,receipt_ref,customer_name,book_id,employee_id,unit_price,quantity,discount,total,sale_date,created_at
        FROM sales WHERE employee_id=? ORDER BY sale_date DESC, id DESC`, employeeID)
}

func (d *Database) querySales(query string, args ...any) ([]*Sale, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []*Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.ReceiptRef, &s.CustomerName, &s.BookID, &s.EmployeeID,
			&s.UnitPrice, &s.Quantity, &s.Discount, &s.Total, &s.SaleDate, &s.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, &s)
	}
	return sales, rows.Err()
}

// ---------------------------------------------------------------------------
// Employees
// ---------------------------------------------------------------------------

// AddEmployee registers an employee with a bcrypt-hashed PIN.
func (d *Database) AddEmployee(name, phone, role, pin string) (int64, error) {
	if role == "" {
		role = "cashier"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash pin: %w", err)
	}
	res, err := d.addEmployeeStmt.Exec(name, phone, role, string(hash))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *Database) GetEmployee(id int64) (*Employee, error) {
	var e Employee
	err := d.db.QueryRow(`SELECT id,name,phone,role,pin_hash FROM employees WHERE id=?`, id).
		Scan(&e.ID, &e.Name, &e.Phone, &e.Role, &e.PINHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (d *Database) GetAllEmployees() ([]*Employee, error) {
	rows, err := d.db.Query(`SELECT id,name,phone,role,pin_hash FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []*Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.Role, &e.PINHash); err != nil {
			return nil, err
		}
		employees = append(employees, &e)
	}
	return employees, rows.Err()
}

// AuthenticateEmployee verifies an employee's PIN against the stored hash.
func (d *Database) AuthenticateEmployee(id int64, pin string) error {
	e, err := d.GetEmployee(id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.PINHash), []byte(pin)); err != nil {
		return fmt.Errorf("invalid PIN for employee %d", id)
	}
	return nil
}
