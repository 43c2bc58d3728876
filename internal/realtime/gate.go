package realtime

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/cache"
	"github.com/spec-kit/academia-portal/internal/events"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/worker"
)

// DefaultTopicTemplate is the per-user notification destination.
const DefaultTopicTemplate = "/topic/notifications/{userId}"

// GateDeps wires a Gate. Cache, Metrics and Logger are optional.
type GateDeps struct {
	Connector     Connector
	Notifications *cache.Notifications
	TopicTemplate string
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

type desiredState struct {
	active bool
	userID int64
	token  string
}

type openChannel struct {
	want    desiredState
	channel Channel
	topic   string
	subID   string
	closing atomic.Bool
	cancel  context.CancelFunc
	done    <-chan error
}

// Gate keeps exactly one notification subscription open while the session is
// Authenticated. Session events only record the wanted state; the channel is
// opened and closed on the goroutine running Run.
type Gate struct {
	connector     Connector
	notifications *cache.Notifications
	topicTemplate string
	metrics       *observability.Metrics
	logger        *zap.Logger

	mu      sync.Mutex
	desired desiredState
	wake    chan struct{}

	// current is owned by the Run goroutine.
	current *openChannel
	active  atomic.Pointer[string]

	closeOnce sync.Once
	closed    chan struct{}
	stopped   chan struct{}
}

func NewGate(deps GateDeps) *Gate {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	template := deps.TopicTemplate
	if template == "" {
		template = DefaultTopicTemplate
	}
	return &Gate{
		connector:     deps.Connector,
		notifications: deps.Notifications,
		topicTemplate: template,
		metrics:       deps.Metrics,
		logger:        logger,
		wake:          make(chan struct{}, 1),
		closed:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Attach subscribes the gate to session transitions.
func (g *Gate) Attach(dispatcher events.Dispatcher) {
	events.SubscribeSession(dispatcher, g.handleSessionEvent)
}

func (g *Gate) handleSessionEvent(_ context.Context, event events.Event) error {
	want := desiredState{}
	if event.Authenticated() && event.Identity != nil && event.Token != "" {
		want = desiredState{active: true, userID: event.Identity.ID, token: event.Token}
	}

	g.mu.Lock()
	g.desired = want
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run reconciles the channel with the session until ctx ends or Close is
// called, then tears the channel down.
func (g *Gate) Run(ctx context.Context) error {
	defer close(g.stopped)
	defer g.teardown()

	g.reconcile(ctx)
	for {
		var done <-chan error
		if g.current != nil {
			done = g.current.done
		}
		select {
		case <-ctx.Done():
			return nil
		case <-g.closed:
			return nil
		case <-g.wake:
			g.reconcile(ctx)
		case err := <-done:
			// The broker dropped us; stay closed until the session changes.
			g.logger.Warn("notification channel ended", zap.Error(err))
			g.current.done = nil
			g.teardown()
		}
	}
}

// Close stops Run. Stopped is closed once the channel has been released.
func (g *Gate) Close() {
	g.closeOnce.Do(func() { close(g.closed) })
}

// Stopped is closed once Run has returned.
func (g *Gate) Stopped() <-chan struct{} {
	return g.stopped
}

// Active returns the subscribed destination, if a subscription is open.
func (g *Gate) Active() (string, bool) {
	topic := g.active.Load()
	if topic == nil {
		return "", false
	}
	return *topic, true
}

// Topic expands the destination template for a user.
func (g *Gate) Topic(userID int64) string {
	return strings.ReplaceAll(g.topicTemplate, "{userId}", strconv.FormatInt(userID, 10))
}

func (g *Gate) reconcile(ctx context.Context) {
	g.mu.Lock()
	want := g.desired
	g.mu.Unlock()

	if g.current != nil && want.active && g.current.want == want {
		return
	}
	if g.current != nil {
		g.teardown()
	}
	if !want.active {
		return
	}
	g.open(ctx, want)
}

func (g *Gate) open(ctx context.Context, want desiredState) {
	topic := g.Topic(want.userID)
	logger := g.logger.With(zap.Int64("user_id", want.userID), zap.String("destination", topic))

	channel, err := g.connector.Connect(ctx, want.token)
	if err != nil {
		logger.Error("notification channel connect failed", zap.Error(err))
		g.metrics.RecordChannel("connect_failed")
		return
	}

	subID, err := channel.Subscribe(ctx, topic)
	if err != nil {
		logger.Error("notification subscribe failed", zap.Error(err))
		g.metrics.RecordChannel("subscribe_failed")
		_ = channel.Close()
		return
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	oc := &openChannel{want: want, channel: channel, topic: topic, subID: subID, cancel: cancel}
	next := func(ctx context.Context) (worker.Delivery, error) {
		frame, err := channel.Receive(ctx)
		if err != nil {
			if oc.closing.Load() {
				return worker.Delivery{}, context.Canceled
			}
			return worker.Delivery{}, err
		}
		return worker.Delivery{
			Destination:  frame.Header("destination"),
			MessageID:    frame.Header("message-id"),
			Subscription: frame.Header("subscription"),
			Body:         frame.Body,
		}, nil
	}
	oc.done = worker.StartNotificationWorker(pumpCtx, next, g.notifications, g.metrics, logger)

	g.current = oc
	g.metrics.RecordChannel("opened")
	g.active.Store(&topic)
	logger.Info("notification channel subscribed", zap.String("subscription", subID))
}

func (g *Gate) teardown() {
	oc := g.current
	if oc == nil {
		return
	}
	g.current = nil

	oc.closing.Store(true)
	if err := oc.channel.Close(); err != nil {
		g.logger.Debug("closing notification channel", zap.Error(err))
	}
	oc.cancel()
	if oc.done != nil {
		<-oc.done
	}
	g.metrics.RecordChannel("closed")
	g.active.Store(nil)
	g.logger.Info("notification channel closed", zap.String("destination", oc.topic))
}
