package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/ikkim/candle-backend/internal/app/model"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/payment/stripepay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	*fixture
	catalog   candleCatalog
	plain     *model.Product
	mailer    *capturingMailer
	publisher *recordingPublisher
	verifier  *fakeVerifier
	checkout  CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	f := newFixture(t)
	cf := &checkoutFixture{
		fixture:   f,
		catalog:   seedCandle(t, f),
		plain:     f.product(t, "plain", 15.99, 10),
		mailer:    newCapturingMailer(),
		publisher: &recordingPublisher{},
		verifier:  &fakeVerifier{},
	}
	cf.checkout = NewCheckoutService(f.db, f.carts, cf.verifier, cf.mailer, cf.publisher)
	return cf
}

// fillCart builds the 15.99 x1 + 17.99 x2 cart.
func (cf *checkoutFixture) fillCart(t *testing.T, owner CartOwner) *model.Cart {
	_, err := cf.cartService.AddItem(owner, AddItemInput{ProductID: cf.plain.ID, Quantity: 1})
	require.NoError(t, err)
	cart, err := cf.cartService.AddItem(owner, AddItemInput{
		ProductID:      cf.catalog.product.ID,
		Quantity:       2,
		Customizations: CustomizationInput{ScentID: ref(cf.catalog.lavender.ID)},
	})
	require.NoError(t, err)
	return cart
}

func checkoutRequest(cartID uint) CheckoutRequest {
	return CheckoutRequest{
		CartID: cartID,
		Email:  "Buyer@Example.com",
		ShippingAddress: model.Address{
			FullName:   "Ada Wick",
			Line1:      "1 Wick Way",
			City:       "Salem",
			PostalCode: "01970",
			Country:    "US",
		},
	}
}

func TestProcessCheckout_CreatesOrder(t *testing.T) {
	cf := newCheckoutFixture(t)
	userID := uint(42)
	owner := UserOwner(userID)
	cart := cf.fillCart(t, owner)

	order, err := cf.checkout.ProcessCheckout(context.Background(), owner, checkoutRequest(cart.ID))
	require.NoError(t, err)

	assert.InDelta(t, 51.97, order.Subtotal, 1e-9)
	assert.InDelta(t, 4.16, order.Tax, 1e-9)
	assert.Zero(t, order.Shipping)
	assert.InDelta(t, 56.13, order.Total, 1e-9)
	assert.Equal(t, "buyer@example.com", order.Email)
	assert.Equal(t, order.ShippingAddress, order.BillingAddress)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, order.OrderNumber)

	stored, err := cf.orders.FindByID(order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "hearth", stored.Items[1].ProductSnapshot.Slug)
	assert.Equal(t, "Lavender", stored.Items[1].Customization.Scent.Name)
	assert.InDelta(t, 35.98, stored.Items[1].LineTotal, 1e-9)

	product, err := cf.products.FindByID(cf.catalog.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, product.StockQuantity)

	_, err = cf.carts.FindByID(cart.ID)
	assert.Error(t, err, "cart is deleted after checkout")

	email := receive(t, cf.mailer.confirmations)
	assert.Equal(t, "buyer@example.com", email.To)
	assert.Equal(t, order.OrderNumber, email.OrderNumber)
	require.Len(t, email.Lines, 2)
	assert.Equal(t, "Lavender", email.Lines[1].Options)

	events := cf.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCreated, events[0].Event)
}

func TestProcessCheckout_SnapshotSurvivesCatalogEdits(t *testing.T) {
	cf := newCheckoutFixture(t)
	owner := GuestOwner("guest")
	cart := cf.fillCart(t, owner)

	order, err := cf.checkout.ProcessCheckout(context.Background(), owner, checkoutRequest(cart.ID))
	require.NoError(t, err)

	cf.catalog.lavender.Name = "Lavender Reformulated"
	require.NoError(t, cf.options.Update(cf.catalog.lavender))

	stored, err := cf.orders.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lavender", stored.Items[1].Customization.Scent.Name)
	assert.Nil(t, stored.UserID)
}

func TestProcessCheckout_ShippingBelowThreshold(t *testing.T) {
	cf := newCheckoutFixture(t)
	owner := GuestOwner("guest")

	cart, err := cf.cartService.AddItem(owner, AddItemInput{
		ProductID: cf.catalog.product.ID,
		Customizations: CustomizationInput{
			ScentID: ref(cf.catalog.lavender.ID),
			ColorID: ref(cf.catalog.ivory.ID),
			SizeID:  ref(cf.catalog.large.ID),
		},
	})
	require.NoError(t, err)

	order, err := cf.checkout.ProcessCheckout(context.Background(), owner, checkoutRequest(cart.ID))
	require.NoError(t, err)
	assert.InDelta(t, 22.49, order.Subtotal, 1e-9)
	assert.InDelta(t, 1.80, order.Tax, 1e-9)
	assert.InDelta(t, 5.99, order.Shipping, 1e-9)
	assert.InDelta(t, 30.28, order.Total, 1e-9)
}

func TestProcessCheckout_Rejections(t *testing.T) {
	cf := newCheckoutFixture(t)
	owner := GuestOwner("guest")
	cart := cf.fillCart(t, owner)

	t.Run("someone else's cart", func(t *testing.T) {
		_, err := cf.checkout.ProcessCheckout(context.Background(), GuestOwner("intruder"), checkoutRequest(cart.ID))
		assert.ErrorIs(t, err, ErrCartForbidden)
		assert.Equal(t, http.StatusForbidden, apperrors.As(err).Status)
	})

	t.Run("unknown cart", func(t *testing.T) {
		_, err := cf.checkout.ProcessCheckout(context.Background(), owner, checkoutRequest(9999))
		assert.ErrorIs(t, err, ErrCartNotFound)
	})

	t.Run("expired cart", func(t *testing.T) {
		stale := GuestOwner("stale")
		staleCart := cf.fillCart(t, stale)
		expireCart(t, cf.fixture, staleCart.ID)

		_, err := cf.checkout.ProcessCheckout(context.Background(), stale, checkoutRequest(staleCart.ID))
		assert.ErrorIs(t, err, ErrCartNotFound)
		assert.Equal(t, http.StatusNotFound, apperrors.As(err).Status)
	})

	t.Run("empty cart", func(t *testing.T) {
		empty := GuestOwner("empty")
		added, err := cf.cartService.AddItem(empty, AddItemInput{ProductID: cf.plain.ID})
		require.NoError(t, err)
		_, err = cf.cartService.RemoveItem(empty, added.Items[0].ID)
		require.NoError(t, err)

		_, err = cf.checkout.ProcessCheckout(context.Background(), empty, checkoutRequest(added.ID))
		assert.ErrorIs(t, err, ErrEmptyCart)
	})
}

func TestProcessCheckout_InsufficientStockRollsBack(t *testing.T) {
	cf := newCheckoutFixture(t)
	owner := GuestOwner("guest")
	cart := cf.fillCart(t, owner)

	require.NoError(t, cf.products.UpdateStock(cf.catalog.product.ID, 1))

	_, err := cf.checkout.ProcessCheckout(context.Background(), owner, checkoutRequest(cart.ID))
	require.Error(t, err)
	appErr := apperrors.As(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, apperrors.CheckoutInsufficientStock, appErr.Code)

	plain, err := cf.products.FindByID(cf.plain.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, plain.StockQuantity, "earlier decrements are rolled back")

	stillThere, err := cf.carts.FindByID(cart.ID)
	require.NoError(t, err)
	assert.Len(t, stillThere.Items, 2)

	var orders int64
	require.NoError(t, cf.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Empty(t, cf.publisher.Events())
}

func TestProcessCheckout_PaymentVerification(t *testing.T) {
	t.Run("verified intent marks the order paid", func(t *testing.T) {
		cf := newCheckoutFixture(t)
		owner := GuestOwner("guest")
		cart := cf.fillCart(t, owner)

		req := checkoutRequest(cart.ID)
		req.PaymentDetails.PaymentIntentID = "pi_123"
		order, err := cf.checkout.ProcessCheckout(context.Background(), owner, req)
		require.NoError(t, err)

		assert.Equal(t, int64(5613), cf.verifier.expectedCents)
		assert.Equal(t, model.PaymentStatusCompleted, order.PaymentStatus)
		assert.NotNil(t, order.PaidAt)
		assert.Equal(t, "pi_123", order.PaymentIntentID)
	})

	t.Run("mismatched intent aborts checkout", func(t *testing.T) {
		cf := newCheckoutFixture(t)
		cf.verifier.err = stripepay.ErrAmountMismatch
		owner := GuestOwner("guest")
		cart := cf.fillCart(t, owner)

		req := checkoutRequest(cart.ID)
		req.PaymentDetails.PaymentIntentID = "pi_bad"
		_, err := cf.checkout.ProcessCheckout(context.Background(), owner, req)
		require.Error(t, err)
		assert.Equal(t, apperrors.CheckoutPaymentNotVerified, apperrors.As(err).Code)

		product, err := cf.products.FindByID(cf.catalog.product.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, product.StockQuantity)
	})

	t.Run("unconfigured verifier leaves payment pending", func(t *testing.T) {
		cf := newCheckoutFixture(t)
		cf.checkout = NewCheckoutService(cf.db, cf.carts, (*stripepay.Client)(nil), nil, nil)
		owner := GuestOwner("guest")
		cart := cf.fillCart(t, owner)

		req := checkoutRequest(cart.ID)
		req.PaymentDetails.PaymentIntentID = "pi_123"
		order, err := cf.checkout.ProcessCheckout(context.Background(), owner, req)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	})
}
