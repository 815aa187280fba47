package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"complaintdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *fakeMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (p *fakePublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func sampleComplaint(creator *models.User) models.Complaint {
	c := models.Complaint{
		ID:          uuid.New(),
		Description: "Milk was expired",
		BranchCode:  "BR1",
		Status:      models.StatusPending,
		IsAnonymous: creator == nil,
	}
	if creator != nil {
		c.CreatedBy = &creator.ID
	}
	return c
}

func TestDispatcher_WelcomeRendersTemplate(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, zap.NewNop(), 4)
	d.Start()

	d.Welcome(models.User{FullName: "Jane Doe", Email: "jane@example.com"})
	closeDispatcher(t, d)

	sent := mailer.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].to)
	assert.Equal(t, subjectWelcome, sent[0].subject)
	assert.Contains(t, sent[0].body, "Jane Doe")
}

func TestDispatcher_ComplaintLifecycleMailsCreator(t *testing.T) {
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	d := NewDispatcher(mailer, pub, zap.NewNop(), 16)
	d.Start()

	creator := &models.User{ID: uuid.New(), FullName: "Jane", Email: "jane@example.com"}
	c := sampleComplaint(creator)
	d.ComplaintCreated(c, creator)
	c.Status = models.StatusInProgress
	d.StatusChanged(c, creator)
	d.ActionAdded(c, models.ComplaintAction{Description: "Shelf restocked"}, creator)
	closeDispatcher(t, d)

	sent := mailer.all()
	require.Len(t, sent, 3)
	assert.Equal(t, subjectReceived, sent[0].subject)
	assert.Contains(t, sent[0].body, "Milk was expired")
	assert.Equal(t, subjectStatus, sent[1].subject)
	assert.Contains(t, sent[1].body, "in_progress")
	assert.Contains(t, sent[2].body, "Shelf restocked")

	require.Len(t, pub.events, 3)
	assert.Equal(t, EventComplaintCreated, pub.events[0].Type)
	assert.Equal(t, EventActionAdded, pub.events[2].Type)
	assert.Equal(t, "Shelf restocked", pub.events[2].Action)
	assert.True(t, pub.closed)
}

func TestDispatcher_AnonymousComplaintPublishesWithoutMail(t *testing.T) {
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	d := NewDispatcher(mailer, pub, zap.NewNop(), 4)
	d.Start()

	d.ComplaintCreated(sampleComplaint(nil), nil)
	closeDispatcher(t, d)

	assert.Empty(t, mailer.all())
	require.Len(t, pub.events, 1)
	assert.Nil(t, pub.events[0].CreatedBy)
}

func TestDispatcher_FailuresAreLoggedNotRetried(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	d := NewDispatcher(mailer, nil, zap.New(core), 4)
	d.Start()

	d.Welcome(models.User{FullName: "Jane", Email: "jane@example.com"})
	closeDispatcher(t, d)

	entries := logs.FilterMessage("notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "welcome", entries[0].ContextMap()["kind"])
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(&fakeMailer{}, nil, zap.New(core), 1)
	// Worker not started, so the single slot fills up.
	d.Welcome(models.User{Email: "a@example.com"})
	d.Welcome(models.User{Email: "b@example.com"})

	assert.Equal(t, 1, logs.FilterMessage("notification dropped, queue full").Len())

	d.Start()
	closeDispatcher(t, d)
}

func TestDispatcher_EnqueueAfterCloseIsIgnored(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, nil, zap.NewNop(), 4)
	d.Start()
	closeDispatcher(t, d)

	assert.NotPanics(t, func() {
		d.Welcome(models.User{Email: "late@example.com"})
	})
	assert.Empty(t, mailer.all())
	// Closing twice is a no-op.
	closeDispatcher(t, d)
}
