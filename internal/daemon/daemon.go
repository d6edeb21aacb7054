// Package daemon wires the schedulers, delivery paths and control API into the
// long-running process started by `tradertime daemon`.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/api"
	"github.com/julianstephens/tradertime/internal/app"
	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/config"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/foreground"
	"github.com/julianstephens/tradertime/internal/infra/rediscenter"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/market"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/notifier"
	"github.com/julianstephens/tradertime/internal/notify"
	"github.com/julianstephens/tradertime/internal/observability/metrics"
	"github.com/julianstephens/tradertime/internal/sound"
	"github.com/julianstephens/tradertime/internal/sound/otoplayer"
	"github.com/julianstephens/tradertime/internal/storage"
)

type options struct {
	player sound.Player
	sink   notify.Sink
	clock  clock.Clock
}

type Option func(*options)

// WithPlayer replaces the audio device player.
func WithPlayer(p sound.Player) Option {
	return func(o *options) { o.player = p }
}

// WithSink replaces the tray webhook notification sink.
func WithSink(s notify.Sink) Option {
	return func(o *options) { o.sink = s }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Components holds everything the daemon runs. Close releases them in reverse
// order of construction.
type Components struct {
	Config      *config.Config
	Store       storage.Provider
	Metrics     *metrics.AlertMetrics
	Center      notify.DispatchCenter
	Coordinator *app.Coordinator
	Foreground  *foreground.Scheduler
	Alarms      *alarm.Service
	Dispatcher  *notify.Dispatcher
	Server      *api.Server

	redis *redis.Client
}

// Build constructs the components. ctx bounds the alarm service and the
// control API; cancel it to shut everything down.
func Build(ctx context.Context, cfg *config.Config, store storage.Provider, opts ...Option) (*Components, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.player == nil {
		o.player = otoplayer.New()
	}
	if o.sink == nil {
		o.sink = notifier.New()
	}
	clk := clock.Or(o.clock)

	c := &Components{Config: cfg, Store: store}

	m, err := metrics.NewAlertMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	c.Metrics = m

	switch cfg.Center {
	case "redis":
		client := redis.NewClient(cfg.RedisOptions())
		center := rediscenter.New(client)
		if err := center.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		c.redis = client
		c.Center = center
	default:
		c.Center = notify.NewMemoryCenter()
	}

	platform := cfg.DeliveryPlatform()
	notifications := notify.NewScheduler(c.Center, store,
		notify.WithClock(clk),
		notify.WithPlatform(platform),
		notify.WithTolerance(cfg.Tolerance),
		notify.WithMetrics(m),
	)

	// The alarm hooks need the coordinator, which needs the alarm service.
	var coord *app.Coordinator
	var alarms app.AlarmScheduler
	if platform.ExactAlarms {
		c.Alarms = alarm.New(ctx, o.player,
			alarm.WithClock(clk),
			alarm.WithRingTimeout(cfg.RingTimeout),
			alarm.WithMetrics(m),
			alarm.WithPolicy(market.DefaultPolicy()),
			alarm.OnFired(func(a alarm.Alarm) { coord.HandleAlarmFired(ctx, a) }),
			alarm.OnSnoozed(func(a alarm.Alarm) { coord.HandleSnoozed(ctx, a) }),
		)
		alarms = c.Alarms
	}
	coord = app.New(store, notifications, alarms,
		app.WithClock(clk),
		app.WithRedeliveryDelay(constants.RedeliveryDelay),
	)
	c.Coordinator = coord

	c.Dispatcher = notify.NewDispatcher(c.Center, o.sink,
		notify.WithDispatchClock(clk),
		notify.WithDispatchMetrics(m),
		notify.WithDispatchPolicy(market.DefaultPolicy()),
		// The foreground loop plays notification-owned alerts while it runs.
		notify.WithForeground(func() bool { return c.Foreground.IsRunning() }),
		notify.OnDelivered(coord.HandleNotificationDelivered),
	)

	c.Foreground = foreground.New(store, o.player,
		foreground.WithClock(clk),
		foreground.WithPlatform(platform),
		foreground.WithPolicy(market.DefaultPolicy()),
		foreground.WithInterval(cfg.TickInterval),
		foreground.WithDedupMode(cfg.DedupMode()),
		foreground.WithMetrics(m),
	)

	serverOpts := []api.Option{
		api.WithNow(clk.Now),
		api.WithCheck("store", func(ctx context.Context) error {
			_, err := store.List(ctx)
			return err
		}),
	}
	if c.Alarms != nil {
		serverOpts = append(serverOpts, api.WithAlarms(c.Alarms))
	}
	if c.redis != nil {
		client := c.redis
		serverOpts = append(serverOpts, api.WithCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
	c.Server = api.NewServer(ctx, c.Foreground, coord, serverOpts...)

	c.Foreground.OnFixedAlert(func(a models.Alert) {
		logger.Info("Session alert fired while the app is running", "alert", a.ID, "label", a.Label)
		c.Server.RecordFixedAlert(a)
	})

	return c, nil
}

// Run resyncs every delivery path, starts the foreground loop and the
// notification dispatcher, and serves the control API until ctx is done.
func (c *Components) Run(ctx context.Context) error {
	summary, err := c.Coordinator.Resume(ctx)
	if err != nil {
		return fmt.Errorf("initial resync failed: %w", err)
	}
	logger.Info("Alerts armed",
		"platform", c.Coordinator.Platform().Name,
		"notifications", summary.Notifications.Armed,
		"alarms", summary.Alarms.Armed,
		"skipped", summary.Notifications.Skipped+summary.Alarms.Skipped,
		"failed", summary.Notifications.Failed+summary.Alarms.Failed,
	)

	go c.Dispatcher.Run(ctx)
	c.Foreground.Start(ctx)
	defer c.Foreground.Stop()

	if c.Config.APIAddr == "" {
		<-ctx.Done()
		return nil
	}
	if err := c.Server.ListenAndServe(c.Config.APIAddr); err != nil {
		return fmt.Errorf("control API failed: %w", err)
	}
	return nil
}

func (c *Components) Close() error {
	var errs []error
	if c.Alarms != nil {
		c.Alarms.StopCurrentAlarm()
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	return errors.Join(errs...)
}

// Run starts the daemon and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, store storage.Provider, opts ...Option) error {
	dir, err := cfg.Dir()
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: dir, Console: true}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c, err := Build(ctx, cfg, store, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("Daemon started", "version", constants.Version, "store", store.GetConfigPath())
	err = c.Run(ctx)
	logger.Info("Daemon stopped")
	return err
}
