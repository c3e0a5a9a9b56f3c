package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/config"
	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/handlers"
	"telegram-customer-calendar/internal/logger"
	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/metrics"
	"telegram-customer-calendar/internal/models"
	"telegram-customer-calendar/internal/poller"
	"telegram-customer-calendar/internal/scheduler"
	"telegram-customer-calendar/internal/storage"
)

const webhookPath = "/telegram/webhook"

// app holds what every command needs: settings, logger, store and gateway.
type app struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	db      *storage.DB
	loc     *time.Location
	clk     clock.Clock
	metrics *metrics.Metrics
	gw      *gateway.Gateway
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	seeded, err := db.SeedTelegramConfig(ctx, cfg.Telegram.Settings())
	if err != nil {
		db.Close()
		return nil, err
	}
	if seeded {
		log.Infow("telegram settings seeded from environment", "chats", cfg.Telegram.ChatIDs)
	}

	m := metrics.New()
	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		loc:     cfg.Location(),
		clk:     clock.New(),
		metrics: m,
		gw:      gateway.New(gateway.BotAPIFactory, cfg.SendRate, log.With("component", "gateway"), m),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warnw("close store", "err", err)
	}
	_ = a.log.Sync()
}

func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a, cmd, args)
	}
}

// ---------- run ----------

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll Telegram, answer chats and fire reminders until interrupted",
		RunE:  withApp(runBot),
	}
}

func runBot(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	labels, err := handlers.LoadLabels(a.cfg.LabelsFile)
	if err != nil {
		return err
	}
	h := &handlers.Handler{
		Store:        a.db,
		Out:          a.gw,
		Digests:      messages.NewDigests(a.db, a.gw, a.loc, a.clk),
		Conv:         handlers.NewConversations(a.cfg.ConversationMax, a.cfg.ConversationIdleTTL, a.log.With("component", "conversations"), a.metrics),
		Labels:       labels,
		Loc:          a.loc,
		Clock:        a.clk,
		DateFallback: a.cfg.DateFallback,
		Log:          a.log.With("component", "handlers"),
	}
	p := poller.New(a.db, a.gw, h, a.cfg.PollTimeout, a.log.With("component", "poller"), a.metrics)
	rem := scheduler.NewReminders(a.db, a.gw, a.loc, a.clk,
		a.cfg.ReminderTolerance, a.cfg.LedgerRetention, a.log.With("component", "reminders"), a.metrics)

	s, err := scheduler.Start(ctx, a.loc, p, a.cfg.PollInterval, rem, a.cfg.ReminderInterval)
	if err != nil {
		return err
	}

	if tc, err := a.db.TelegramConfig(ctx); err == nil && webhookWithoutListener(tc, a.cfg.WebhookListen) {
		a.log.Warnw("webhook mode is on but WEBHOOK_LISTEN is empty: updates are neither polled nor received",
			"hint", "set WEBHOOK_LISTEN or run `settings --webhook=false`")
	}

	servers := a.httpServers(p)
	for _, srv := range servers {
		go func(srv *http.Server) {
			a.log.Infow("http listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorw("http server stopped", "addr", srv.Addr, "err", err)
			}
		}(srv)
	}

	a.log.Infow("bot started",
		"poll_interval", a.cfg.PollInterval,
		"reminder_interval", a.cfg.ReminderInterval,
		"timezone", a.loc.String())
	<-ctx.Done()
	a.log.Info("shutting down")

	if err := s.Shutdown(); err != nil {
		a.log.Warnw("stop scheduler", "err", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warnw("stop http server", "addr", srv.Addr, "err", err)
		}
	}
	return nil
}

// webhookWithoutListener reports settings under which the bot hears nothing:
// polling is off for webhook mode, yet no server accepts the pushes.
func webhookWithoutListener(tc models.TelegramConfig, listen string) bool {
	return tc.Active() && tc.WebhookEnabled && strings.TrimSpace(listen) == ""
}

// httpServers serves the webhook and /metrics. Both may share one address.
func (a *app) httpServers(p *poller.Poller) []*http.Server {
	muxes := map[string]*http.ServeMux{}
	var order []string
	mux := func(addr string) *http.ServeMux {
		if m, ok := muxes[addr]; ok {
			return m
		}
		muxes[addr] = http.NewServeMux()
		order = append(order, addr)
		return muxes[addr]
	}

	if addr := a.cfg.WebhookListen; addr != "" {
		mux(addr).Handle(webhookPath, p.WebhookHandler())
		mux(addr).Handle("/metrics", a.metrics.Handler())
	}
	if addr := a.cfg.MetricsListen; addr != "" && addr != a.cfg.WebhookListen {
		mux(addr).Handle("/metrics", a.metrics.Handler())
	}

	servers := make([]*http.Server, 0, len(order))
	for _, addr := range order {
		servers = append(servers, &http.Server{
			Addr:              addr,
			Handler:           muxes[addr],
			ReadHeaderTimeout: 10 * time.Second,
		})
	}
	return servers
}

// ---------- settings ----------

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored Telegram settings",
		RunE:  withApp(runSettings),
	}
	cmd.Flags().String("token", "", "bot token")
	cmd.Flags().String("chat-ids", "", "comma separated chat ids allowed to talk to the bot")
	cmd.Flags().Bool("enabled", true, "enable the bot")
	cmd.Flags().Bool("webhook", false, "receive updates through the webhook instead of polling")
	return cmd
}

func runSettings(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	cur, err := a.db.TelegramConfig(ctx)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	changed := false
	if flags.Changed("token") {
		cur.BotToken, _ = flags.GetString("token")
		cur.BotToken = strings.TrimSpace(cur.BotToken)
		changed = true
	}
	if flags.Changed("chat-ids") {
		cur.ChatIDs, _ = flags.GetString("chat-ids")
		changed = true
	}
	if flags.Changed("enabled") {
		cur.Enabled, _ = flags.GetBool("enabled")
		changed = true
	}
	if flags.Changed("webhook") {
		cur.WebhookEnabled, _ = flags.GetBool("webhook")
		changed = true
	}
	if changed {
		if err := a.db.SaveTelegramConfig(ctx, cur); err != nil {
			return err
		}
		a.log.Infow("telegram settings updated", "enabled", cur.Enabled, "webhook", cur.WebhookEnabled)
	}

	printSettings(cmd, cur)
	return nil
}

func printSettings(cmd *cobra.Command, c models.TelegramConfig) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "token:    %s\n", maskToken(c.BotToken))
	fmt.Fprintf(out, "chat ids: %s\n", strings.Join(c.Recipients(), ", "))
	fmt.Fprintf(out, "enabled:  %t\n", c.Enabled)
	fmt.Fprintf(out, "webhook:  %t\n", c.WebhookEnabled)
}

func maskToken(t string) string {
	if t == "" {
		return "(none)"
	}
	if len(t) <= 8 {
		return "****"
	}
	return t[:4] + "…" + t[len(t)-4:]
}

// ---------- send ----------

func newSendCommand() *cobra.Command {
	valid := make([]string, 0, len(messages.Kinds))
	for _, k := range messages.Kinds {
		valid = append(valid, string(k))
	}
	cmd := &cobra.Command{
		Use:       "send <" + strings.Join(valid, "|") + ">",
		Short:     "Push a digest or export to the configured chats",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: valid,
		RunE:      withApp(runSend),
	}
	cmd.Flags().String("to", "", "single chat id instead of every configured chat")
	return cmd
}

func runSend(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	cfg, err := a.db.TelegramConfig(ctx)
	if err != nil {
		return err
	}
	to, _ := cmd.Flags().GetString("to")

	kind := messages.Kind(args[0])
	err = messages.NewDigests(a.db, a.gw, a.loc, a.clk).Send(ctx, cfg, kind, to)
	if errors.Is(err, messages.ErrNothingToSend) {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to send")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "send %s", kind)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s sent\n", kind)
	return nil
}

// ---------- appointment ----------

func newAppointmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointment",
		Short: "Manage appointments",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create an appointment and announce it to the configured chats",
		RunE:  withApp(runAppointmentAdd),
	}
	add.Flags().String("customer", "", "customer name (required)")
	add.Flags().String("content", "", "what is to be done")
	add.Flags().String("date", "", "DD.MM.YYYY or YYYY-MM-DD, today when empty")
	add.Flags().String("time", "09:00", "HH:MM")
	add.Flags().String("repeat", "none", "none, monthly or yearly")
	_ = add.MarkFlagRequired("customer")

	cmd.AddCommand(add)
	return cmd
}

func runAppointmentAdd(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	customer, _ := flags.GetString("customer")
	content, _ := flags.GetString("content")
	date, _ := flags.GetString("date")
	hm, _ := flags.GetString("time")
	repeatFlag, _ := flags.GetString("repeat")

	customer = strings.TrimSpace(customer)
	if customer == "" {
		return errors.New("customer is required")
	}
	key, err := dateKey(date, a.clk.Now().In(a.loc), a.loc)
	if err != nil {
		return err
	}
	hm = strings.TrimSpace(hm)
	if _, err := calendar.Instant(key, hm, a.loc); err != nil {
		return err
	}
	repeat, err := calendar.ParseRepeat(repeatFlag)
	if err != nil {
		return err
	}

	created, err := a.db.CreateSeries(ctx, models.Appointment{
		Customer: customer,
		Content:  strings.TrimSpace(content),
		Date:     key,
		Time:     hm,
	}, repeat, a.loc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %d appointment(s), first %s\n", len(created), created[0].ID)

	cfg, err := a.db.TelegramConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Active() {
		text := messages.Announcement(created[0], repeat != calendar.RepeatNone, a.loc)
		if !a.gw.SendMessage(ctx, cfg, gateway.Message{Text: text}) {
			a.log.Warnw("announcement not delivered", "id", created[0].ID)
		}
	}
	return nil
}

// dateKey accepts the bot's DD.MM.YYYY form or a stored key.
func dateKey(s string, now time.Time, loc *time.Location) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return calendar.DateKey(now), nil
	}
	if t, ok := calendar.ParseDMY(s, loc); ok {
		return calendar.DateKey(t), nil
	}
	if t, err := calendar.ParseKey(s, loc); err == nil {
		return calendar.DateKey(t), nil
	}
	return "", errors.Errorf("bad date %q, want DD.MM.YYYY or YYYY-MM-DD", s)
}
