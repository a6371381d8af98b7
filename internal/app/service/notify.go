package service

import (
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/ikkim/candle-backend/pkg/mailer"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderMailer sends customer facing order mail.
type OrderMailer interface {
	SendOrderConfirmation(order mailer.OrderEmail) error
	SendStatusChange(order mailer.OrderEmail) error
}

// OrderEventPublisher pushes order events to connected admin dashboards.
type OrderEventPublisher interface {
	PublishOrderEvent(event string, order *model.Order)
}

func orderEmail(order *model.Order) mailer.OrderEmail {
	lines := make([]mailer.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, mailer.OrderLine{
			Name:      item.ProductSnapshot.Name,
			Options:   item.Customization.Label(),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return mailer.OrderEmail{
		To:          order.Email,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Lines:       lines,
		Subtotal:    order.Subtotal,
		Tax:         order.Tax,
		Shipping:    order.Shipping,
		Total:       order.Total,
	}
}

// sendAsync runs a mail send in the background. Failures are logged and never
// reach the caller.
func sendAsync(kind string, order *model.Order, send func(mailer.OrderEmail) error) {
	email := orderEmail(order)
	go func() {
		if err := send(email); err != nil {
			logger.Error("Failed to send order email", err, map[string]interface{}{
				"kind":         kind,
				"order_number": email.OrderNumber,
			})
		}
	}()
}

func publish(publisher OrderEventPublisher, event string, order *model.Order) {
	if publisher == nil {
		return
	}
	publisher.PublishOrderEvent(event, order)
}
