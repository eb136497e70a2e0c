// Package payment wraps the online payment gateway used at checkout.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// ErrGatewayDisabled is returned when no gateway credentials are configured.
var ErrGatewayDisabled = errors.New("payment gateway is not configured")

const DefaultCurrency = "INR"

// Order is a gateway order the client pays against.
type Order struct {
	ID       string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"key_id"`
}

// Gateway creates orders and verifies the signature returned after payment.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, receipt string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay implements Gateway on the Razorpay orders API.
type Razorpay struct {
	orders   orderCreator
	keyID    string
	secret   string
	currency string
}

func NewRazorpay(keyID, secret string) *Razorpay {
	client := razorpay.NewClient(keyID, secret)
	return &Razorpay{orders: client.Order, keyID: keyID, secret: secret, currency: DefaultCurrency}
}

// ToMinorUnits converts rupees to paise, rounding to the nearest paisa.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateOrder registers an order for amount (in rupees). The Razorpay SDK
// is synchronous, so ctx is only checked before the call.
func (r *Razorpay) CreateOrder(ctx context.Context, amount float64, receipt string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	body, err := r.orders.Create(map[string]interface{}{
		"amount":   minor,
		"currency": r.currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("create razorpay order: response has no id")
	}
	order := &Order{ID: id, Amount: minor, Currency: r.currency, Receipt: receipt, KeyID: r.keyID}
	if amt, ok := body["amount"].(float64); ok {
		order.Amount = int64(amt)
	}
	if cur, ok := body["currency"].(string); ok && cur != "" {
		order.Currency = cur
	}
	return order, nil
}

// VerifySignature checks the signature Razorpay checkout returns for an
// order and payment against the API secret.
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, r.secret)
}
