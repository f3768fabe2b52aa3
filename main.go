package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"bookstore-pos/pos"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	dbPath  string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "bookstore-pos",
		Short:         "Bookstore point of sale over SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "bookstore.db", "path to the SQLite database")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging to stderr")

	root.AddCommand(
		addBookCmd(), listBooksCmd(), stockCmd(), restockCmd(),
		addEmployeeCmd(), listEmployeesCmd(),
		listSalesCmd(), sellCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func openManager() (*pos.Manager, error) {
	return pos.NewManager(dbPath, newLogger())
}

// readPIN securely reads a PIN with masking.
func readPIN(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePIN, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after masked input
	return strings.TrimSpace(string(bytePIN)), nil
}

// ---------------------------------------------------------------------------
// Catalog commands
// ---------------------------------------------------------------------------

func addBookCmd() *cobra.Command {
	var stock int
	cmd := &cobra.Command{
		Use:   "add-book <title> <author>",
		Short: "Add a title to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			id, err := mgr.AddBook(args[0], args[1], stock)
			if err != nil {
				return err
			}
			fmt.Printf("Added book %d: %s by %s (stock %d)\n", id, args[0], args[1], stock)
			return nil
		},
	}
	cmd.Flags().IntVar(&stock, "stock", 0, "initial stock level")
	return cmd
}

func listBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-books",
		Short: "List the catalog with stock levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			books, err := mgr.GetAllBooks()
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-35s %-25s %5s\n", "ID", "Title", "Author", "Stock")
			fmt.Println(strings.Repeat("-", 75))
			for _, b := range books {
				fmt.Println(pos.PrettyBook(b))
			}
			return nil
		},
	}
}

func stockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock <book-id>",
		Short: "Show the current stock level of a book (advisory)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[0])
			}
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			level, err := mgr.StockLevel(id)
			if err != nil {
				return err
			}
			fmt.Printf("Book %d: %d in stock\n", id, level)
			return nil
		},
	}
}

func restockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restock <book-id> <quantity>",
		Short: "Add stock for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[0])
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := mgr.AddStock(id, qty); err != nil {
				return err
			}
			level, err := mgr.StockLevel(id)
			if err != nil {
				return err
			}
			fmt.Printf("Book %d restocked, now %d in stock\n", id, level)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Employee commands
// ---------------------------------------------------------------------------

func addEmployeeCmd() *cobra.Command {
	var phone, role string
	cmd := &cobra.Command{
		Use:   "add-employee <name>",
		Short: "Register an employee (prompts for a PIN)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := readPIN("Choose a PIN: ")
			if err != nil {
				return fmt.Errorf("read PIN: %w", err)
			}
			if pin == "" {
				return fmt.Errorf("PIN must not be empty")
			}
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			id, err := mgr.AddEmployee(args[0], phone, role, pin)
			if err != nil {
				return err
			}
			fmt.Printf("Added employee %d: %s (%s)\n", id, args[0], role)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&role, "role", "cashier", "employee role")
	return cmd
}

func listEmployeesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-employees",
		Short: "List registered employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			employees, err := mgr.GetAllEmployees()
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-25s %-15s %-10s\n", "ID", "Name", "Phone", "Role")
			fmt.Println(strings.Repeat("-", 60))
			for _, e := range employees {
				fmt.Printf("%-5d %-25s %-15s %-10s\n", e.ID, e.Name, e.Phone, e.Role)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Sales commands
// ---------------------------------------------------------------------------

func listSalesCmd() *cobra.Command {
	var employeeID int64
	cmd := &cobra.Command{
		Use:   "list-sales",
		Short: "List the sale ledger, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			var sales []*pos.Sale
			if employeeID > 0 {
				sales, err = mgr.SalesByEmployee(employeeID)
			} else {
				sales, err = mgr.GetAllSales()
			}
			if err != nil {
				return err
			}
			for _, s := range sales {
				fmt.Println(pos.PrettySale(s))
			}
			fmt.Printf("%d sale(s)\n", len(sales))
			return nil
		},
	}
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "only sales by this employee")
	return cmd
}

func sellCmd() *cobra.Command {
	var employeeID int64
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Assemble a cart interactively and commit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if employeeID <= 0 {
				return fmt.Errorf("--employee is required")
			}
			mgr, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			pin, err := readPIN(fmt.Sprintf("PIN for employee %d: ", employeeID))
			if err != nil {
				return fmt.Errorf("read PIN: %w", err)
			}
			if err := mgr.AuthenticateEmployee(employeeID, pin); err != nil {
				return err
			}

			return runSale(mgr, employeeID)
		},
	}
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "id of the cashier running the sale")
	return cmd
}

// runSale is the interactive cart loop: prompt for customer and lines, show a
// running total, then commit and print per-line outcomes.
func runSale(mgr *pos.Manager, employeeID int64) error {
	sc := bufio.NewScanner(os.Stdin)

	fmt.Print("Customer name: ")
	if !sc.Scan() {
		return fmt.Errorf("aborted")
	}
	customer := strings.TrimSpace(sc.Text())
	if customer == "" {
		return fmt.Errorf("customer name must not be empty")
	}

	var cart pos.Cart
	running := decimal.Zero

	for {
		fmt.Print("\nBook ID (blank to finish): ")
		if !sc.Scan() {
			break
		}
		input := strings.TrimSpace(sc.Text())
		if input == "" {
			break
		}
		bookID, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			fmt.Println("Invalid book id.")
			continue
		}

		book, err := mgr.GetBook(bookID)
		if err != nil {
			fmt.Printf("Lookup failed: %v\n", err)
			continue
		}
		fmt.Printf("%s by %s, %d in stock\n", book.Title, book.Author, book.Stock)

		line, err := promptLine(sc, book)
		if err != nil {
			fmt.Println(err)
			continue
		}

		quote, err := pos.PriceLine(line)
		if err != nil {
			fmt.Printf("Invalid line: %v\n", err)
			continue
		}
		cart = append(cart, line)
		running = running.Add(quote.Total)
		fmt.Printf("Line total %s, cart total %s (%d line(s))\n",
			quote.Total.StringFixed(2), running.StringFixed(2), len(cart))
	}

	if len(cart) == 0 {
		fmt.Println("Cart is empty, nothing to commit.")
		return nil
	}

	batch, err := mgr.Commit(cart, pos.Session{CustomerName: customer, EmployeeID: employeeID})
	if err != nil {
		return err
	}

	fmt.Println("\nResults:")
	for _, r := range batch.Results {
		switch r.Status {
		case pos.LineCommitted:
			fmt.Printf("  OK      %-35s x%-3d %8s  sale #%d receipt %s\n",
				r.Line.Title, r.Line.Quantity, r.Sale.Total.StringFixed(2), r.Sale.ID, r.Sale.ReceiptRef)
		case pos.LinePersistFailed:
			fmt.Printf("  FAILED  %-35s x%-3d not recorded, stock already consumed: %v\n",
				r.Line.Title, r.Line.Quantity, r.Err)
		default:
			fmt.Printf("  NO      %-35s x%-3d rejected: %v\n", r.Line.Title, r.Line.Quantity, r.Err)
		}
	}
	fmt.Printf("Committed %d of %d line(s), total %s\n",
		batch.Committed(), len(batch.Results), batch.CommittedTotal().StringFixed(2))

	if batch.Committed() == 0 {
		return nil
	}

	fmt.Print("Payment method [cash/card]: ")
	method := "cash"
	if sc.Scan() {
		if txt := strings.TrimSpace(sc.Text()); txt != "" {
			method = txt
		}
	}
	payment, err := pos.PaymentByName(method, newLogger())
	if err != nil {
		return err
	}
	if err := payment.Process(batch.CommittedTotal()); err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	fmt.Printf("Paid by %s. Thank you!\n", payment.Name())
	return nil
}

// promptLine collects price, quantity and discount tier for one book.
func promptLine(sc *bufio.Scanner, book *pos.Book) (pos.CartLine, error) {
	fmt.Print("Unit price: ")
	if !sc.Scan() {
		return pos.CartLine{}, fmt.Errorf("aborted")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(sc.Text()))
	if err != nil {
		return pos.CartLine{}, fmt.Errorf("invalid price: %v", err)
	}

	fmt.Print("Quantity: ")
	if !sc.Scan() {
		return pos.CartLine{}, fmt.Errorf("aborted")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return pos.CartLine{}, fmt.Errorf("invalid quantity: %v", err)
	}

	fmt.Print("Discount [0/5/10/15/20]: ")
	if !sc.Scan() {
		return pos.CartLine{}, fmt.Errorf("aborted")
	}
	tier, err := pos.ParseDiscountTier(sc.Text())
	if err != nil {
		return pos.CartLine{}, err
	}

	return pos.CartLine{
		BookID:    book.ID,
		Title:     book.Title,
		UnitPrice: price,
		Quantity:  qty,
		Tier:      tier,
	}, nil
}
