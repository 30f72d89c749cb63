package notify

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
)

// Parked is a message whose delivery failed.
type Parked struct {
	ID        int       `json:"id"`
	OrderID   string    `json:"order_id"`
	Recipient string    `json:"recipient"`
	Message   Message   `json:"message"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	ParkedAt  time.Time `json:"parked_at"`
}

// Outbox holds failed messages for redelivery. Messages that exhaust
// maxAttempts are dropped with an operator alert in the log.
type Outbox struct {
	sender      Sender
	maxAttempts int
	metrics     *metrics.Metrics
	log         *logging.Logger

	mu     sync.Mutex
	nextID int
	items  []Parked
}

// NewOutbox creates an outbox. maxAttempts counts the original send.
func NewOutbox(sender Sender, maxAttempts int, m *metrics.Metrics, log *logging.Logger) *Outbox {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Outbox{sender: sender, maxAttempts: maxAttempts, metrics: m, log: log}
}

// Park stores a failed message.
func (o *Outbox) Park(orderID, recipient string, msg Message, err error) {
	o.mu.Lock()
	o.nextID++
	o.items = append(o.items, Parked{
		ID:        o.nextID,
		OrderID:   orderID,
		Recipient: recipient,
		Message:   msg,
		Attempts:  1,
		LastError: err.Error(),
		ParkedAt:  time.Now().UTC(),
	})
	n := len(o.items)
	o.mu.Unlock()
	o.gauge(n)
}

// Pending returns a copy of the parked messages.
func (o *Outbox) Pending() []Parked {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Parked(nil), o.items...)
}

// Retry attempts every parked message once and returns how many were delivered.
func (o *Outbox) Retry(ctx context.Context) int {
	o.mu.Lock()
	batch := o.items
	o.items = nil
	o.mu.Unlock()

	var (
		keep      []Parked
		delivered int
	)
	for _, p := range batch {
		if ctx.Err() != nil {
			keep = append(keep, p)
			continue
		}
		_, err := o.sender.Send(ctx, p.Message)
		if o.metrics != nil {
			o.metrics.RecordNotification(p.Recipient, err == nil)
		}
		if err == nil {
			delivered++
			o.log.WithContext(ctx).WithFields(logrus.Fields{
				"order_id":  p.OrderID,
				"recipient": p.Recipient,
				"attempts":  p.Attempts + 1,
			}).Info("parked notification delivered")
			continue
		}
		p.Attempts++
		p.LastError = err.Error()
		if p.Attempts >= o.maxAttempts {
			o.log.WithContext(ctx).WithFields(logrus.Fields{
				"order_id":  p.OrderID,
				"recipient": p.Recipient,
				"to":        p.Message.To,
				"attempts":  p.Attempts,
				"alert":     "operator",
			}).WithError(err).Error("notification abandoned")
			continue
		}
		keep = append(keep, p)
	}

	o.mu.Lock()
	o.items = append(keep, o.items...)
	n := len(o.items)
	o.mu.Unlock()
	o.gauge(n)
	return delivered
}

func (o *Outbox) gauge(n int) {
	if o.metrics != nil {
		o.metrics.SetOutboxPending(n)
	}
}

// Scheduler runs Outbox.Retry on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	outbox *Outbox
	log    *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers the retry job. spec uses robfig/cron syntax, e.g. "@every 5m".
func NewScheduler(outbox *Outbox, spec string, log *logging.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = "@every 5m"
	}
	if log == nil {
		log = logging.NewDiscard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		outbox: outbox,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	pending := len(s.outbox.Pending())
	if pending == 0 {
		return
	}
	delivered := s.outbox.Retry(s.ctx)
	s.log.WithFields(logrus.Fields{
		"pending":   pending,
		"delivered": delivered,
	}).Info("outbox retry pass")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels an in-progress pass and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
