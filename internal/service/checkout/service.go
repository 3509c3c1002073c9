// Package checkout drives the two-stage checkout: billing details, then the
// external payment widget, then order creation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when an event is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid checkout transition")

type State string

const (
	StateCollectingBilling State = "collecting_billing"
	StateAwaitingPayment   State = "awaiting_payment"
	StateCompleted         State = "completed"
)

// Billing is the contact and shipping information collected before payment.
type Billing struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country,omitempty"`
	SaveAddress bool   `json:"saveAddress,omitempty"`
}

type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentRequest is what the client hands to the payment widget.
type PaymentRequest struct {
	Amount   int64   `json:"amount"`
	Currency string  `json:"currency"`
	KeyID    string  `json:"keyId"`
	Prefill  Prefill `json:"prefill"`
}

// Snapshot is the persisted checkout of one session.
type Snapshot struct {
	State       State           `json:"state"`
	Billing     *Billing        `json:"billing,omitempty"`
	Payment     *PaymentRequest `json:"payment,omitempty"`
	OrderID     string          `json:"orderId,omitempty"`
	OrderNumber string          `json:"orderNumber,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Cart is the part of the cart engine checkout needs.
type Cart interface {
	Lines() []domain.CartLine
	Total() int64
	Clear(ctx context.Context) error
}

// CartOpener opens the cart of an identity.
type CartOpener func(ctx context.Context, id domain.Identity, sink notice.Sink) Cart

type orderCreator interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
}

type addressCreator interface {
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
}

type Options struct {
	Currency string
	KeyID    string
	TTL      time.Duration
	Logger   *log.Logger
}

type Service struct {
	store     localstore.Store
	carts     CartOpener
	orders    orderCreator
	addresses addressCreator
	currency  string
	keyID     string
	ttl       time.Duration
	logger    *log.Logger
	now       func() time.Time
}

func New(store localstore.Store, carts CartOpener, orders orderCreator, addresses addressCreator, opts Options) *Service {
	s := &Service{
		store:     store,
		carts:     carts,
		orders:    orders,
		addresses: addresses,
		currency:  opts.Currency,
		keyID:     opts.KeyID,
		ttl:       opts.TTL,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.currency == "" {
		s.currency = "INR"
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	return s
}

// Current returns the session's checkout, starting a new one if none exists.
func (s *Service) Current(ctx context.Context, id domain.Identity) (Snapshot, error) {
	if id.Anonymous() {
		return Snapshot{}, domain.ErrUnauthenticated
	}
	return s.load(ctx, id)
}

// SubmitBilling validates billing details and moves to AwaitingPayment. It can
// be repeated while awaiting payment.
func (s *Service) SubmitBilling(ctx context.Context, id domain.Identity, b Billing, sink notice.Sink) (Snapshot, *PaymentRequest, error) {
	if id.Anonymous() {
		return Snapshot{}, nil, domain.ErrUnauthenticated
	}
	snap, err := s.load(ctx, id)
	if err != nil {
		return Snapshot{}, nil, err
	}
	if snap.State == StateCompleted {
		notice.Info(sink, "This order is already placed")
		return snap, nil, ErrInvalidTransition
	}
	b = trimBilling(b)
	if missing := missingFields(b); len(missing) > 0 {
		notice.Error(sink, "Please fill in all billing details")
		return snap, nil, domain.Validationf("missing billing fields: %s", strings.Join(missing, ", "))
	}

	c := s.carts(ctx, id, sink)
	if len(c.Lines()) == 0 {
		notice.Error(sink, "Your cart is empty")
		return snap, nil, domain.Validation("cart is empty")
	}

	req := &PaymentRequest{
		Amount:   c.Total(),
		Currency: s.currency,
		KeyID:    s.keyID,
		Prefill:  Prefill{Name: b.Name, Email: b.Email, Phone: b.Phone},
	}
	snap.State = StateAwaitingPayment
	snap.Billing = &b
	snap.Payment = req
	if err := s.save(ctx, id, snap); err != nil {
		return Snapshot{}, nil, err
	}
	return snap, req, nil
}

// PaymentSucceeded handles the payment widget's success callback: it snapshots
// the cart into an order, clears the cart and completes the checkout. If the
// order cannot be created the checkout stays in AwaitingPayment.
func (s *Service) PaymentSucceeded(ctx context.Context, id domain.Identity, reference string, sink notice.Sink) (Snapshot, error) {
	if id.Anonymous() {
		return Snapshot{}, domain.ErrUnauthenticated
	}
	snap, err := s.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.State != StateAwaitingPayment || snap.Billing == nil {
		notice.Error(sink, "Please complete your billing details first")
		return snap, ErrInvalidTransition
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return snap, domain.Validation("payment reference required")
	}
	if !id.Authenticated() {
		notice.Error(sink, "Please sign in to place your order")
		return snap, domain.ErrUnauthenticated
	}

	c := s.carts(ctx, id, sink)
	lines := c.Lines()
	if len(lines) == 0 {
		notice.Error(sink, "Your cart is empty")
		return snap, domain.Validation("cart is empty")
	}

	charged := c.Total()
	if snap.Payment != nil {
		// The order records what the widget captured, not a recomputed total.
		if charged != snap.Payment.Amount {
			s.logger.Printf("checkout: cart total changed customer=%s reference=%s charged=%d cart=%d",
				id.CustomerID, reference, snap.Payment.Amount, charged)
			notice.Error(sink, fmt.Sprintf("Your cart changed after payment started. Please contact support with reference %s", reference))
		}
		charged = snap.Payment.Amount
	}

	order, err := s.createOrder(ctx, id.CustomerID, *snap.Billing, lines, charged, reference)
	if err != nil {
		s.logger.Printf("checkout: create order customer=%s reference=%s error=%v", id.CustomerID, reference, err)
		notice.Error(sink, fmt.Sprintf("Payment received but the order could not be saved. Reference: %s", reference))
		return snap, err
	}

	if err := c.Clear(ctx); err != nil {
		s.logger.Printf("checkout: clear cart customer=%s order=%s error=%v", id.CustomerID, order.ID, err)
	}
	if snap.Billing.SaveAddress && s.addresses != nil {
		addr := order.ShippingAddress
		addr.CustomerID = id.CustomerID
		if _, err := s.addresses.Create(ctx, addr); err != nil {
			s.logger.Printf("checkout: save address customer=%s error=%v", id.CustomerID, err)
		}
	}

	snap.State = StateCompleted
	snap.OrderID = order.ID
	snap.OrderNumber = order.OrderNumber
	if err := s.save(ctx, id, snap); err != nil {
		s.logger.Printf("checkout: save completed state customer=%s error=%v", id.CustomerID, err)
	}
	s.logger.Printf("checkout: order placed customer=%s order=%s number=%s total=%d", id.CustomerID, order.ID, order.OrderNumber, order.TotalCents)
	notice.Success(sink, "Order placed")
	return snap, nil
}

// Dismiss handles the payment widget being closed. Billing is kept so the
// payment can be retried.
func (s *Service) Dismiss(ctx context.Context, id domain.Identity, sink notice.Sink) (Snapshot, error) {
	if id.Anonymous() {
		return Snapshot{}, domain.ErrUnauthenticated
	}
	snap, err := s.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.State != StateAwaitingPayment {
		return snap, ErrInvalidTransition
	}
	notice.Info(sink, "Payment cancelled")
	return snap, nil
}

// Reset discards the session's checkout.
func (s *Service) Reset(ctx context.Context, id domain.Identity) (Snapshot, error) {
	if id.Anonymous() {
		return Snapshot{}, domain.ErrUnauthenticated
	}
	if err := s.store.Delete(ctx, localstore.CheckoutKey(id.SessionKey())); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{State: StateCollectingBilling, UpdatedAt: s.now()}, nil
}

func (s *Service) createOrder(ctx context.Context, customerID string, b Billing, lines []domain.CartLine, total int64, reference string) (*domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID:      l.Product.ID,
			Name:           l.Product.Name,
			UnitPriceCents: l.Product.EffectivePriceCents(),
			Quantity:       l.Quantity,
			Color:          l.Color,
			Size:           l.Size,
		})
	}
	order := domain.Order{
		CustomerID:       customerID,
		Status:           domain.OrderStatusConfirmed,
		PaymentStatus:    domain.PaymentStatusPaid,
		PaymentReference: reference,
		TotalCents:       total,
		Currency:         s.currency,
		ShippingAddress: domain.Address{
			Name:       b.Name,
			Phone:      b.Phone,
			Line:       b.Address,
			City:       b.City,
			State:      b.State,
			PostalCode: b.PostalCode,
			Country:    b.Country,
		},
		Items: items,
	}
	for i := 0; i < 3; i++ {
		order.OrderNumber = newOrderNumber(s.now())
		created, err := s.orders.Create(ctx, order)
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return created, err
	}
	return nil, errors.New("order number collision")
}

// load returns the stored checkout. A customer without one adopts the
// checkout they started as a guest.
func (s *Service) load(ctx context.Context, id domain.Identity) (Snapshot, error) {
	var snap Snapshot
	found, err := s.store.Get(ctx, localstore.CheckoutKey(id.SessionKey()), &snap)
	if err != nil {
		return Snapshot{}, err
	}
	if !found && id.Authenticated() && id.GuestID != "" {
		guestKey := localstore.CheckoutKey(domain.Identity{GuestID: id.GuestID}.SessionKey())
		if found, err = s.store.Get(ctx, guestKey, &snap); err != nil {
			return Snapshot{}, err
		}
		if found {
			if err := s.save(ctx, id, snap); err != nil {
				return Snapshot{}, err
			}
			if err := s.store.Delete(ctx, guestKey); err != nil {
				s.logger.Printf("checkout: drop guest state guest=%s error=%v", id.GuestID, err)
			}
		}
	}
	if !found {
		snap = Snapshot{State: StateCollectingBilling, UpdatedAt: s.now()}
	}
	return snap, nil
}

func (s *Service) save(ctx context.Context, id domain.Identity, snap Snapshot) error {
	snap.UpdatedAt = s.now()
	return s.store.Set(ctx, localstore.CheckoutKey(id.SessionKey()), snap, s.ttl)
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

func trimBilling(b Billing) Billing {
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	b.Phone = strings.TrimSpace(b.Phone)
	b.Address = strings.TrimSpace(b.Address)
	b.City = strings.TrimSpace(b.City)
	b.State = strings.TrimSpace(b.State)
	b.PostalCode = strings.TrimSpace(b.PostalCode)
	b.Country = strings.TrimSpace(b.Country)
	return b
}

func missingFields(b Billing) []string {
	fields := []struct {
		name  string
		value string
	}{
		{"name", b.Name},
		{"email", b.Email},
		{"phone", b.Phone},
		{"address", b.Address},
		{"city", b.City},
		{"state", b.State},
		{"postalCode", b.PostalCode},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
