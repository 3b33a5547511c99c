// Package notify sends operator alerts and customer receipts after the
// ledger mutation that triggered them has committed. Delivery is best effort:
// failures are logged and never returned to the request.
package notify

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/dreamforge/internal/config"
	"github.com/smallbiznis/dreamforge/internal/providers/email"
	"github.com/smallbiznis/dreamforge/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Alert struct {
	Subject string
	Fields  map[string]string
}

func (a Alert) text() string {
	var b strings.Builder
	b.WriteString(a.Subject)
	for _, key := range slices.Sorted(maps.Keys(a.Fields)) {
		fmt.Fprintf(&b, "\n%s: %s", key, a.Fields[key])
	}
	return b.String()
}

type Params struct {
	fx.In

	Lc    fx.Lifecycle `optional:"true"`
	Cfg   config.Config
	Log   *zap.Logger
	Slack slack.Provider
	Email email.Provider
}

type Dispatcher struct {
	log       *zap.Logger
	slack     slack.Provider
	email     email.Provider
	operators []string
	receipts  bool
	timeout   time.Duration
	slots     chan struct{}
	wg        sync.WaitGroup
}

const defaultMaxInFlight = 16

func NewDispatcher(p Params) *Dispatcher {
	timeout := p.Cfg.Notification.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxInFlight := p.Cfg.Notification.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	var operators []string
	for _, addr := range p.Cfg.Notification.OperatorEmails {
		if addr = strings.TrimSpace(addr); addr != "" {
			operators = append(operators, addr)
		}
	}

	d := &Dispatcher{
		log:       p.Log.Named("notify"),
		slack:     p.Slack,
		email:     p.Email,
		operators: operators,
		receipts:  p.Cfg.Notification.PurchaseReceipts,
		timeout:   timeout,
		slots:     make(chan struct{}, maxInFlight),
	}
	if p.Lc != nil {
		p.Lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				d.Wait()
				return nil
			},
		})
	}
	return d
}

// AlertOperators posts to Slack and e-mails the operator list in the background.
func (d *Dispatcher) AlertOperators(ctx context.Context, alert Alert) {
	if d == nil {
		return
	}
	text := alert.text()
	d.goSend(ctx, "slack", func(ctx context.Context) error {
		return d.slack.PostMessage(ctx, text)
	})
	if len(d.operators) > 0 {
		d.goSend(ctx, "email", func(ctx context.Context) error {
			return d.email.Send(ctx, d.operators, "[dreamforge] "+alert.Subject, text)
		})
	}
}

// SendPurchaseReceipt e-mails the buyer when receipts are enabled.
func (d *Dispatcher) SendPurchaseReceipt(ctx context.Context, to string, credits int64, transactionID string) {
	if d == nil || !d.receipts {
		return
	}
	to = strings.TrimSpace(to)
	if to == "" || credits <= 0 {
		return
	}
	body := fmt.Sprintf(
		"Hello!\n\n%d credits have been added to your account.\nTransaction: %s\n\nThank you for your purchase!",
		credits,
		transactionID,
	)
	d.goSend(ctx, "receipt", func(ctx context.Context) error {
		return d.email.Send(ctx, []string{to}, "Your credits are ready", body)
	})
}

// Wait blocks until every in-flight notification has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// goSend runs send on one of the dispatcher's slots. When every slot is busy
// the notification is dropped rather than holding up the caller.
func (d *Dispatcher) goSend(parent context.Context, channel string, send func(ctx context.Context) error) {
	select {
	case d.slots <- struct{}{}:
	default:
		d.log.Warn("notification dropped, dispatcher saturated", zap.String("channel", channel))
		return
	}

	d.wg.Add(1)
	go func() {
		defer func() {
			<-d.slots
			d.wg.Done()
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			d.log.Warn("notification failed", zap.String("channel", channel), zap.Error(err))
		}
	}()
}

var Module = fx.Module("notify",
	fx.Provide(NewDispatcher),
)
