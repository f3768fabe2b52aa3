package pos

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is the monetary breakdown of a single cart line.
type Quote struct {
	Gross          decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// PriceLine computes gross, discount amount and total for one line.
//
//	gross  = unitPrice × quantity
//	total  = round(gross − gross × tier, 2)
//
// Total is rounded half away from zero and is the only rounded value in the
// pipeline; Gross and DiscountAmount keep full precision. Pure function, no
// side effects.
func PriceLine(line CartLine) (Quote, error) {
	if !line.UnitPrice.IsPositive() {
		return Quote{}, &InvalidLineError{Field: "unitPrice", Reason: "must be greater than zero"}
	}
	if line.Quantity <= 0 {
		return Quote{}, &InvalidLineError{Field: "quantity", Reason: "must be greater than zero"}
	}
	frac, ok := line.Tier.Fraction()
	if !ok {
		return Quote{}, &InvalidLineError{Field: "discountTier", Reason: "is not a known tier"}
	}

	gross := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	discount := gross.Mul(frac)
	return Quote{
		Gross:          gross,
		DiscountAmount: discount,
		Total:          gross.Sub(discount).Round(2),
	}, nil
}

// NewSale assembles the permanent record for one priced line plus the cashier
// session context. The ledger fills in ID at insert time.
func NewSale(line CartLine, q Quote, sess Session) *Sale {
	frac, _ := line.Tier.Fraction()
	now := sess.now()
	return &Sale{
		ReceiptRef:   uuid.New(),
		CustomerName: sess.CustomerName,
		BookID:       line.BookID,
		EmployeeID:   sess.EmployeeID,
		UnitPrice:    line.UnitPrice,
		Quantity:     line.Quantity,
		Discount:     frac,
		Total:        q.Total,
		SaleDate:     now,
		CreatedAt:    now,
	}
}
