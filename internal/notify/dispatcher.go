// Package notify announces accepted orders by email to the operator and the buyer.
package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eel-studio/storefront/internal/configurator"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
)

const (
	RecipientOperator = "operator"
	RecipientBuyer    = "buyer"
)

// Config names the sender, the operator inbox and the public site.
type Config struct {
	From          string
	OperatorEmail string
	SiteURL       string
}

// Dispatcher implements configurator.Notifier. Failed sends are parked in the
// outbox and reported as one joined error.
type Dispatcher struct {
	cfg     Config
	sender  Sender
	outbox  *Outbox
	metrics *metrics.Metrics
	log     *logging.Logger
}

var _ configurator.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. outbox, m and log may be nil.
func NewDispatcher(cfg Config, sender Sender, outbox *Outbox, m *metrics.Metrics, log *logging.Logger) *Dispatcher {
	if cfg.From == "" {
		cfg.From = "EEL Studio <onboarding@resend.dev>"
	}
	cfg.SiteURL = strings.TrimSuffix(cfg.SiteURL, "/")
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Dispatcher{cfg: cfg, sender: sender, outbox: outbox, metrics: m, log: log}
}

// Messages renders what Notify would send for n.
func (d *Dispatcher) Messages(n order.Notification) (map[string]Message, error) {
	out := make(map[string]Message, 2)
	if d.cfg.OperatorEmail != "" {
		html, err := render(operatorTmpl, n, d.cfg.SiteURL)
		if err != nil {
			return nil, fmt.Errorf("render operator mail: %w", err)
		}
		out[RecipientOperator] = Message{
			From:    d.cfg.From,
			To:      []string{d.cfg.OperatorEmail},
			Subject: OperatorSubject(n),
			HTML:    html,
		}
	}
	if n.BuyerEmail != "" {
		html, err := render(buyerTmpl, n, d.cfg.SiteURL)
		if err != nil {
			return nil, fmt.Errorf("render buyer mail: %w", err)
		}
		out[RecipientBuyer] = Message{
			From:    d.cfg.From,
			To:      []string{n.BuyerEmail},
			Subject: BuyerSubject,
			HTML:    html,
		}
	}
	return out, nil
}

// Notify sends the operator message, then the buyer message when the buyer has an email.
func (d *Dispatcher) Notify(ctx context.Context, n order.Notification) error {
	msgs, err := d.Messages(n)
	if err != nil {
		return err
	}

	var errs []error
	for _, recipient := range []string{RecipientOperator, RecipientBuyer} {
		msg, ok := msgs[recipient]
		if !ok {
			continue
		}
		id, err := d.sender.Send(ctx, msg)
		if d.metrics != nil {
			d.metrics.RecordNotification(recipient, err == nil)
		}
		entry := d.log.WithContext(ctx).WithFields(logrus.Fields{
			"order_id":  n.OrderID,
			"recipient": recipient,
		})
		if err != nil {
			entry.WithError(err).Warn("notification send failed; parked")
			if d.outbox != nil {
				d.outbox.Park(n.OrderID, recipient, msg, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", recipient, err))
			continue
		}
		entry.WithField("message_id", id).Debug("notification sent")
	}
	return stderrors.Join(errs...)
}
