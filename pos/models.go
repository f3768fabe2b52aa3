package pos

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book represents one title in the catalog. Stock is the only field this
// package ever mutates, and only through Database.ReserveStock / AddStock.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Stock     int       `json:"stock"`
	AddedDate time.Time `json:"added_date"`
}

// Employee is a registered cashier or admin.
type Employee struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Role    string `json:"role"`
	PINHash string `json:"-"` // Don't serialize the bcrypt hash
}

// DiscountTier is the tagged set of allowed per-line discounts. A line carries
// exactly one tier, so conflicting discounts are unrepresentable.
type DiscountTier int

const (
	DiscountNone DiscountTier = iota
	Discount5
	Discount10
	Discount15
	Discount20
)

var tierFractions = map[DiscountTier]decimal.Decimal{
	DiscountNone: decimal.Zero,
	Discount5:    decimal.New(5, -2),
	Discount10:   decimal.New(10, -2),
	Discount15:   decimal.New(15, -2),
	Discount20:   decimal.New(20, -2),
}

// Fraction yields the tier as a 0.0–1.0 multiplier. ok is false for values
// outside the defined set (possible only through a raw conversion).
func (t DiscountTier) Fraction() (frac decimal.Decimal, ok bool) {
	frac, ok = tierFractions[t]
	return frac, ok
}

func (t DiscountTier) String() string {
	switch t {
	case DiscountNone:
		return "none"
	case Discount5:
		return "5%"
	case Discount10:
		return "10%"
	case Discount15:
		return "15%"
	case Discount20:
		return "20%"
	}
	return fmt.Sprintf("DiscountTier(%d)", int(t))
}

// ParseDiscountTier maps user input ("0", "5", "10", "15", "20", optionally
// with a trailing %) to a tier.
func ParseDiscountTier(s string) (DiscountTier, error) {
	switch strings.TrimSuffix(strings.TrimSpace(s), "%") {
	case "", "0", "none":
		return DiscountNone, nil
	case "5":
		return Discount5, nil
	case "10":
		return Discount10, nil
	case "15":
		return Discount15, nil
	case "20":
		return Discount20, nil
	}
	return DiscountNone, fmt.Errorf("unknown discount tier %q (want 0, 5, 10, 15 or 20)", s)
}

// CartLine is one book/quantity/discount entry awaiting commit. Title is
// carried along for display only.
type CartLine struct {
	BookID    int64           `json:"book_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Tier      DiscountTier    `json:"tier"`
}

// Cart is an ordered list of lines; ordering is preserved through commit so
// partial failures are deterministic.
type Cart []CartLine

// Sale is the permanent record of one committed cart line. ID is assigned by
// the ledger at insert time; nothing mutates a Sale afterwards.
type Sale struct {
	ID           int64           `json:"id"`
	ReceiptRef   uuid.UUID       `json:"receipt_ref"`
	CustomerName string          `json:"customer_name"`
	BookID       int64           `json:"book_id"`
	EmployeeID   int64           `json:"employee_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Discount     decimal.Decimal `json:"discount"` // fraction, 0.0–1.0
	Total        decimal.Decimal `json:"total"`
	SaleDate     time.Time       `json:"sale_date"`
	CreatedAt    time.Time       `json:"created_at"`
}
