package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/db"
	"github.com/ikkim/candle-backend/pkg/mailer"
	"github.com/ikkim/candle-backend/pkg/payment/stripepay"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db            *gorm.DB
	products      repository.ProductRepository
	options       repository.OptionRepository
	carts         repository.CartRepository
	orders        repository.OrderRepository
	users         repository.UserRepository
	customization CustomizationService
	cartService   CartService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &fixture{
		db:       testDB,
		products: repository.NewProductRepository(testDB),
		options:  repository.NewOptionRepository(testDB),
		carts:    repository.NewCartRepository(testDB),
		orders:   repository.NewOrderRepository(testDB),
		users:    repository.NewUserRepository(testDB),
	}
	f.customization = NewCustomizationService(f.products, f.options, nil)
	f.cartService = NewCartService(f.carts, f.customization, 24*time.Hour)
	return f
}

func (f *fixture) option(t *testing.T, kind model.OptionKind, name string, price float64) *model.CustomizationOption {
	t.Helper()
	opt := &model.CustomizationOption{
		Kind:            kind,
		Name:            name,
		Available:       true,
		InStock:         true,
		AdditionalPrice: price,
	}
	require.NoError(t, f.options.Create(opt))
	return opt
}

func (f *fixture) product(t *testing.T, slug string, basePrice float64, stock int, opts ...*model.CustomizationOption) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          slug,
		Slug:          slug,
		BasePrice:     basePrice,
		StockQuantity: stock,
		Category:      model.CategoryJar,
		IsActive:      true,
	}
	for _, opt := range opts {
		product.Options = append(product.Options, *opt)
	}
	require.NoError(t, f.products.Create(product))
	return product
}

func ref(id uint) *OptionRef {
	return refOf(id)
}

func strRef(s string) *OptionRef {
	r := OptionRef(s)
	return &r
}

type capturingMailer struct {
	confirmations chan mailer.OrderEmail
	statusChanges chan mailer.OrderEmail
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{
		confirmations: make(chan mailer.OrderEmail, 10),
		statusChanges: make(chan mailer.OrderEmail, 10),
	}
}

func (m *capturingMailer) SendOrderConfirmation(order mailer.OrderEmail) error {
	m.confirmations <- order
	return nil
}

func (m *capturingMailer) SendStatusChange(order mailer.OrderEmail) error {
	m.statusChanges <- order
	return nil
}

func receive(t *testing.T, ch chan mailer.OrderEmail) mailer.OrderEmail {
	t.Helper()
	select {
	case email := <-ch:
		return email
	case <-time.After(2 * time.Second):
		t.Fatal("expected an email to be sent")
		return mailer.OrderEmail{}
	}
}

type recordedEvent struct {
	Event       string
	OrderNumber string
	Status      model.OrderStatus
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishOrderEvent(event string, order *model.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Event: event, OrderNumber: order.OrderNumber, Status: order.Status})
}

func (p *recordingPublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type fakeVerifier struct {
	err           error
	expectedCents int64
}

func (v *fakeVerifier) Verify(_ context.Context, intentID string, expectedCents int64) (*stripepay.Intent, error) {
	v.expectedCents = expectedCents
	if v.err != nil {
		return nil, v.err
	}
	return &stripepay.Intent{ID: intentID, Status: "succeeded", AmountCents: expectedCents, Currency: "usd"}, nil
}
