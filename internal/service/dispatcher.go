package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher periodically hands undelivered notifications to a Sender.
type Dispatcher struct {
	repo     NotificationRepository
	sender   Sender
	cache    ReceiptCache
	log      logrus.FieldLogger
	interval time.Duration
	batch    int

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

func NewDispatcher(repo NotificationRepository, sender Sender, cache ReceiptCache, log logrus.FieldLogger, interval time.Duration, batch int) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		sender:   sender,
		cache:    cache,
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

// ProcessPendingNotifications sends up to limit undelivered notifications.
// A failed send leaves the notification pending for the next run.
func (d *Dispatcher) ProcessPendingNotifications(ctx context.Context, limit int) error {
	pending, err := d.repo.PendingNotifications(ctx, limit)
	if err != nil {
		return err
	}
	for _, n := range pending {
		entry := d.log.WithFields(logrus.Fields{"notification_id": n.ID, "user_id": n.UserID})
		deliveryID, err := d.sender.Send(ctx, n)
		if err != nil {
			entry.WithError(err).Warn("failed to send notification")
			continue
		}
		deliveredAt := time.Now().UTC()
		if err := d.repo.MarkNotificationDelivered(ctx, n.ID, deliveredAt); err != nil {
			entry.WithError(err).Error("failed to mark notification delivered")
			continue
		}
		if err := d.cache.StoreReceipt(ctx, n.ID, deliveryID, deliveredAt); err != nil {
			entry.WithError(err).Warn("failed to cache delivery receipt")
		}
		entry.WithField("delivery_id", deliveryID).Info("notification delivered")
	}
	return nil
}

func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRunning {
		d.log.Info("dispatcher is already running")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.isRunning = true
	go d.loop(ctx, d.done)
	return nil
}

func (d *Dispatcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.log.WithField("interval", d.interval).Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.ProcessPendingNotifications(ctx, d.batch); err != nil {
				d.log.WithError(err).Error("error processing pending notifications")
			}
		}
	}
}

// Stop halts the loop and waits for an in-flight run to finish.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		d.log.Info("dispatcher is not running")
		return nil
	}
	d.cancel()
	done := d.done
	d.isRunning = false
	d.mu.Unlock()
	<-done
	return nil
}

func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isRunning
}
