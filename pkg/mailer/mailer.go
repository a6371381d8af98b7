package mailer

import (
	"fmt"
	"html"
	"strings"

	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

// OrderLine is one row of an order email.
type OrderLine struct {
	Name      string
	Options   string // "Lavender / Sage / Large"
	Quantity  int
	LineTotal float64
}

// OrderEmail is everything the order templates render.
type OrderEmail struct {
	To          string
	OrderNumber string
	Status      string
	Lines       []OrderLine
	Subtotal    float64
	Tax         float64
	Shipping    float64
	Total       float64
}

// Mailer sends HTML mail over SMTP. Without SMTP settings it runs in dev mode
// and only logs what it would have sent.
type Mailer struct {
	cfg  config.MailConfig
	send func(...*gomail.Message) error
}

func New(cfg config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	if cfg.SMTPEnabled() {
		dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		m.send = dialer.DialAndSend
	}
	return m
}

// Send delivers one HTML message.
func (m *Mailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("mailer: empty recipient for %q", subject)
	}

	if m.send == nil {
		logger.Info("[DEV MODE] email not sent", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.send(msg); err != nil {
		logger.Error("Failed to send email", err, map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("Email sent", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

func (m *Mailer) SendOrderConfirmation(order OrderEmail) error {
	subject := fmt.Sprintf("[%s] Order %s confirmed", m.cfg.StoreName, order.OrderNumber)
	intro := "Thank you for your order. We are pouring your candles now."
	return m.Send(order.To, subject, m.renderOrder(order, intro))
}

func (m *Mailer) SendStatusChange(order OrderEmail) error {
	subject := fmt.Sprintf("[%s] Order %s is %s", m.cfg.StoreName, order.OrderNumber, order.Status)
	intro := fmt.Sprintf("Your order status changed to <strong>%s</strong>.", html.EscapeString(order.Status))
	return m.Send(order.To, subject, m.renderOrder(order, intro))
}

// SendAdminAlert notifies the configured admin address about a server error.
func (m *Mailer) SendAdminAlert(subject, detail string) error {
	if m.cfg.AdminEmail == "" {
		logger.Debug("Admin alert skipped, ADMIN_EMAIL not set", map[string]interface{}{
			"subject": subject,
		})
		return nil
	}

	body := fmt.Sprintf(`<html><body style="font-family: monospace;"><h2>%s</h2><pre>%s</pre></body></html>`,
		html.EscapeString(subject), html.EscapeString(detail))
	return m.Send(m.cfg.AdminEmail, fmt.Sprintf("[%s] ALERT: %s", m.cfg.StoreName, subject), body)
}

func (m *Mailer) renderOrder(order OrderEmail, intro string) string {
	var rows strings.Builder
	for _, line := range order.Lines {
		name := html.EscapeString(line.Name)
		if line.Options != "" {
			name += fmt.Sprintf(`<br><small style="color: #888;">%s</small>`, html.EscapeString(line.Options))
		}
		fmt.Fprintf(&rows, `<tr><td style="padding: 8px 0;">%s</td><td style="text-align: center;">%d</td><td style="text-align: right;">$%.2f</td></tr>`,
			name, line.Quantity, line.LineTotal)
	}

	shipping := fmt.Sprintf("$%.2f", order.Shipping)
	if order.Shipping == 0 {
		shipping = "Free"
	}

	return fmt.Sprintf(`
<html>
<body style="font-family: Georgia, serif; padding: 20px; background-color: #faf7f2;">
	<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 40px; border-radius: 10px;">
		<h1 style="color: #4a3b2c;">%s</h1>
		<p style="color: #666;">%s</p>
		<p style="color: #666;">Order number: <strong>%s</strong></p>
		<table style="width: 100%%; border-collapse: collapse;">
			<tr><th style="text-align: left;">Item</th><th>Qty</th><th style="text-align: right;">Total</th></tr>
			%s
		</table>
		<hr>
		<p style="text-align: right;">Subtotal: $%.2f<br>Tax: $%.2f<br>Shipping: %s<br><strong>Total: $%.2f</strong></p>
	</div>
</body>
</html>
`, html.EscapeString(m.cfg.StoreName), intro, html.EscapeString(order.OrderNumber), rows.String(),
		order.Subtotal, order.Tax, shipping, order.Total)
}
