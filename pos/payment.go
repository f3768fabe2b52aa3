package pos

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentMethod settles the total of a committed batch. Payment happens after
// the commit pipeline and never participates in per-line outcomes.
type PaymentMethod interface {
	Name() string
	Process(total decimal.Decimal) error
}

// CashPayment would open a cash drawer in a real deployment.
type CashPayment struct {
	Log *zap.Logger
}

func (p CashPayment) Name() string { return "cash" }

func (p CashPayment) Process(total decimal.Decimal) error {
	p.Log.Info("processing cash payment", zap.String("total", total.StringFixed(2)))
	return nil
}

// CardPayment would talk to a card terminal in a real deployment.
type CardPayment struct {
	Log *zap.Logger
}

func (p CardPayment) Name() string { return "card" }

func (p CardPayment) Process(total decimal.Decimal) error {
	p.Log.Info("processing card payment", zap.String("total", total.StringFixed(2)))
	return nil
}

// PaymentByName resolves user input to a payment method.
func PaymentByName(name string, log *zap.Logger) (PaymentMethod, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cash":
		return CashPayment{Log: log}, nil
	case "card":
		return CardPayment{Log: log}, nil
	}
	return nil, fmt.Errorf("unknown payment method %q (want cash or card)", name)
}
