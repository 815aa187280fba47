// Package notify sends complaint notifications off the request path: emails
// to the people involved and, when configured, an event stream for other
// systems. Delivery is best effort; failures are logged and dropped.
package notify

import (
	"context"
	"sync"
	"time"

	"complaintdesk/internal/models"

	"go.uber.org/zap"
)

// Notifier is what handlers call after a successful mutation. Calls never block
// on delivery.
type Notifier interface {
	Welcome(user models.User)
	ComplaintCreated(c models.Complaint, creator *models.User)
	StatusChanged(c models.Complaint, creator *models.User)
	ActionAdded(c models.Complaint, action models.ComplaintAction, creator *models.User)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Welcome(models.User)                                                {}
func (Nop) ComplaintCreated(models.Complaint, *models.User)                    {}
func (Nop) StatusChanged(models.Complaint, *models.User)                       {}
func (Nop) ActionAdded(models.Complaint, models.ComplaintAction, *models.User) {}

const (
	subjectWelcome   = "Welcome to CustomerPulse!"
	subjectReceived  = "We received your complaint"
	subjectStatus    = "Your complaint status has changed"
	subjectAction    = "An action was taken on your complaint"
	defaultQueueSize = 256
	jobTimeout       = 30 * time.Second
)

type job struct {
	kind string
	to   string
	run  func(ctx context.Context) error
}

type Dispatcher struct {
	mailer    Mailer
	publisher Publisher
	log       *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}
}

func NewDispatcher(mailer Mailer, publisher Publisher, log *zap.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Dispatcher{
		mailer:    mailer,
		publisher: publisher,
		log:       log.Named("notify"),
		queue:     make(chan job, queueSize),
		done:      make(chan struct{}),
	}
}

// Start runs the delivery worker. It must be called once before Close.
func (d *Dispatcher) Start() {
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		err := j.run(ctx)
		cancel()
		if err != nil {
			d.log.Warn("notification failed",
				zap.String("kind", j.kind),
				zap.String("to", j.to),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting work, drains what is queued and closes the publisher.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.publisher.Close()
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped, dispatcher closed", zap.String("kind", j.kind))
		return
	}
	select {
	case d.queue <- j:
	default:
		d.log.Warn("notification dropped, queue full", zap.String("kind", j.kind), zap.String("to", j.to))
	}
}

func (d *Dispatcher) mail(kind, to, subject, tmpl string, data any) {
	if to == "" {
		return
	}
	d.enqueue(job{kind: kind, to: to, run: func(ctx context.Context) error {
		body, err := render(tmpl, data)
		if err != nil {
			return err
		}
		return d.mailer.Send(ctx, to, subject, body)
	}})
}

func (d *Dispatcher) publish(e Event) {
	d.enqueue(job{kind: string(e.Type), run: func(ctx context.Context) error {
		return d.publisher.Publish(ctx, e)
	}})
}

func (d *Dispatcher) Welcome(user models.User) {
	d.mail("welcome", user.Email, subjectWelcome, tmplWelcome, struct{ Name string }{user.FullName})
}

func (d *Dispatcher) ComplaintCreated(c models.Complaint, creator *models.User) {
	d.publish(eventFor(EventComplaintCreated, c, ""))
	if creator == nil || c.IsAnonymous {
		return
	}
	d.mail("complaint_received", creator.Email, subjectReceived, tmplComplaintReceived, struct {
		Name, BranchCode, ComplaintID, Description, Status string
	}{creator.FullName, c.BranchCode, c.ID.String(), c.Description, string(c.Status)})
}

func (d *Dispatcher) StatusChanged(c models.Complaint, creator *models.User) {
	d.publish(eventFor(EventStatusChanged, c, ""))
	if creator == nil || c.IsAnonymous {
		return
	}
	d.mail("status_changed", creator.Email, subjectStatus, tmplStatusChanged, struct {
		Name, ComplaintID, Status string
	}{creator.FullName, c.ID.String(), string(c.Status)})
}

func (d *Dispatcher) ActionAdded(c models.Complaint, action models.ComplaintAction, creator *models.User) {
	d.publish(eventFor(EventActionAdded, c, action.Description))
	if creator == nil || c.IsAnonymous {
		return
	}
	d.mail("action_added", creator.Email, subjectAction, tmplActionAdded, struct {
		Name, ComplaintID, Action, Status string
	}{creator.FullName, c.ID.String(), action.Description, string(c.Status)})
}

func eventFor(t EventType, c models.Complaint, action string) Event {
	return Event{
		Type:        t,
		ComplaintID: c.ID,
		BranchCode:  c.BranchCode,
		Status:      string(c.Status),
		CreatedBy:   c.CreatedBy,
		Action:      action,
		OccurredAt:  time.Now().UTC(),
	}
}
