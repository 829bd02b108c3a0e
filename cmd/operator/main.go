// Operator is the always-on daemon: it boots every subsystem (approvals,
// scheduler, audit log, kill switch, token budget, memory, growth,
// research, operations), registers the periodic jobs that drive them, and
// serves health/metrics/MCP over HTTP until told to stop.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/0ld3ull/operator/internal/approval"
	"github.com/0ld3ull/operator/internal/audit"
	"github.com/0ld3ull/operator/internal/auth"
	"github.com/0ld3ull/operator/internal/budget"
	"github.com/0ld3ull/operator/internal/checkin"
	"github.com/0ld3ull/operator/internal/config"
	"github.com/0ld3ull/operator/internal/cron"
	"github.com/0ld3ull/operator/internal/growth"
	"github.com/0ld3ull/operator/internal/killswitch"
	"github.com/0ld3ull/operator/internal/llmrouter"
	"github.com/0ld3ull/operator/internal/mcpserver"
	"github.com/0ld3ull/operator/internal/memory"
	"github.com/0ld3ull/operator/internal/migration"
	"github.com/0ld3ull/operator/internal/notify"
	"github.com/0ld3ull/operator/internal/operations"
	"github.com/0ld3ull/operator/internal/research"
	"github.com/0ld3ull/operator/internal/scheduler"
	"github.com/0ld3ull/operator/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("OPERATOR_CONFIG"), "path to YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if lvl, lerr := zap.ParseAtomicLevel(cfg.LogLevel); lerr == nil {
		logger = logger.WithOptions(zap.IncreaseLevel(lvl.Level()))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data dir", zap.Error(err), zap.String("dir", cfg.DataDir))
	}
	if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
		logger.Fatal("failed to create inbox dir", zap.Error(err), zap.String("dir", cfg.InboxDir))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("operator exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	dataPath := func(name string) string { return filepath.Join(cfg.DataDir, name) }

	// --- kill switch + notifications first, so every later subsystem can
	// be wired with a working alert path from the moment it's constructed.
	notifyLog := zapr.NewLogger(logger.Named("notify"))
	routes := notify.SeverityRoute{}
	var limiter *notify.RateLimiter
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tg := notify.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		routes = notify.SeverityRoute{Info: []notify.Channel{tg}, Warning: []notify.Channel{tg}, Critical: []notify.Channel{tg}}
		limiter = notify.NewRateLimiter(20)
	}
	notifier := notify.NewRouter(routes, limiter, notifyLog)

	alert := func(ev audit.Event) {
		notifier.Notify(context.Background(), notify.Message{
			AgentName: ev.Project,
			Severity:  "critical",
			Title:     ev.Topic,
			Body:      ev.Message,
			Timestamp: ev.Timestamp,
		})
	}

	if backupPath, err := migration.BackupDatabase(dataPath("audit.db")); err != nil {
		logger.Warn("audit db backup skipped", zap.Error(err))
	} else {
		logger.Info("audit db backed up", zap.String("path", backupPath))
	}
	if err := migration.CleanOldBackups(dataPath("audit.db"), 30*24*time.Hour); err != nil {
		logger.Warn("clean old audit db backups failed", zap.Error(err))
	}

	auditStore, err := audit.NewStore(dataPath("audit.db"), 10000, alert)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer auditStore.Close()

	kill, err := killswitch.New(auditStore.DB())
	if err != nil {
		return fmt.Errorf("open kill switch: %w", err)
	}
	if cfg.KillSwitchActive {
		_ = kill.Activate(ctx, "activated from config at boot")
	}

	tokenBudget, err := budget.New(auditStore.DB())
	if err != nil {
		return fmt.Errorf("open token budget: %w", err)
	}

	// --- approvals, scheduling, check-ins ---
	approvalStore, err := approval.NewStore(dataPath("approval_queue.db"))
	if err != nil {
		return fmt.Errorf("open approval store: %w", err)
	}
	defer approvalStore.Close()
	approvalQueue := approval.NewQueue(approvalStore)

	schedulerStore, err := scheduler.NewStore(dataPath("scheduler.db"))
	if err != nil {
		return fmt.Errorf("open scheduler store: %w", err)
	}
	defer schedulerStore.Close()
	sched := scheduler.New(schedulerStore)

	checkinStore, err := checkin.NewStore(dataPath("checkin_log.db"), time.Duration(cfg.DedupWindowMinutes)*time.Minute)
	if err != nil {
		return fmt.Errorf("open checkin store: %w", err)
	}
	defer checkinStore.Close()

	// --- memory ---
	peopleStore, err := memory.NewPeopleStore(dataPath("people.db"))
	if err != nil {
		return fmt.Errorf("open people store: %w", err)
	}
	defer peopleStore.Close()
	knowledgeStore, err := memory.NewKnowledgeStore(dataPath("knowledge.db"))
	if err != nil {
		return fmt.Errorf("open knowledge store: %w", err)
	}
	defer knowledgeStore.Close()
	eventStore, err := memory.NewEventStore(dataPath("events.db"))
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer eventStore.Close()
	goalStore, err := memory.NewGoalStore(dataPath("goals.db"))
	if err != nil {
		return fmt.Errorf("open goal store: %w", err)
	}
	defer goalStore.Close()

	// --- model router ---
	provider := llmrouter.NewOpenAIProvider(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.APIKey)
	router := llmrouter.New(provider, llmrouter.Tiers{
		Cheap: cfg.LLM.Models.Cheap,
		Mid:   cfg.LLM.Models.Mid,
		High:  cfg.LLM.Models.High,
	}, logger.Named("llmrouter"))

	memManager := memory.NewManager(peopleStore, knowledgeStore, eventStore, goalStore, memoryRouterAdapter{router})

	// --- growth ---
	growthStore, err := growth.NewStore(dataPath("growth.db"))
	if err != nil {
		return fmt.Errorf("open growth store: %w", err)
	}
	defer growthStore.Close()
	searchQueries := growth.LoadSearchQueries(dataPath("growth_queries.yaml"))
	growthAgent := growth.NewAgent(
		growthStore,
		growth.UnconfiguredTwitter{},
		approvalQueue,
		auditStore,
		notifier,
		growthRouterAdapter{router},
		kill,
		searchQueries,
		growth.WithLogger(logger.Named("growth")),
	)

	// --- research ---
	researchStore, err := research.NewStore(dataPath("research.db"))
	if err != nil {
		return fmt.Errorf("open research store: %w", err)
	}
	defer researchStore.Close()
	goals := research.LoadGoals(dataPath("research_goals.yaml"))
	scraperCfg := research.LoadScraperConfig(dataPath("research_scrapers.yaml"))
	scrapers := research.BuildScrapers(scraperCfg, logger.Named("research.scraper"))
	evaluator := research.NewGoalEvaluator(researchRouterAdapter{router}, goals, logger.Named("research.evaluator"))
	actionRouter := research.NewActionRouter(approvalQueue, researchRouterAdapter{router}, notifier, memManager, cfg.InboxDir, logger.Named("research.router"))
	researchAgent := research.NewAgent(researchStore, scrapers, evaluator, actionRouter, kill, logger.Named("research"))

	// --- operations ---
	opsAgent := operations.NewAgent(
		approvalQueue,
		sched,
		auditStore,
		checkinStore,
		notifier,
		kill,
		cfg.InboxDir,
		operations.WithMemory(memManager),
		operations.WithLogger(logger.Named("operations")),
		operations.WithPersona(cfg.Persona.Name, cfg.Persona.Description),
	)

	// --- MCP + telemetry ---
	mcpSrv := mcpserver.New(approvalQueue, logger.Named("mcpserver"))

	shutdownTracing, err := telemetry.InitTraceProvider(ctx, os.Getenv("OPERATOR_OTLP_ENDPOINT"), version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// --- cron jobs ---
	runner := cron.New(kill, logger.Named("cron"), 30*time.Second)
	runner.Register("poll_dashboard_actions", "30s", opsAgent.PollDashboardActions)
	runner.Register("check_content_gaps", "1h", opsAgent.CheckContentGaps)
	runner.Register("growth_check_mentions", "15m", growthAgent.CheckMentions)
	runner.Register("growth_find_reply_targets", "6h", growthAgent.FindReplyTargets)
	runner.Register("growth_track_performance", "4h", growthAgent.TrackPerformance)
	runner.Register("growth_daily_report", "0 7 * * *", growthAgent.GenerateDailyReport)
	planAndScheduleTweets := func(ctx context.Context) error {
		plan, err := growthAgent.PlanDailySchedule(ctx, time.Now().UTC().Format("2006-01-02"))
		if err != nil {
			return err
		}
		scheduleTweetGeneration(runner, growthAgent, plan)
		return nil
	}
	runner.Register("growth_plan_schedule", "0 6 * * *", planAndScheduleTweets)
	runner.ScheduleOnce("tweet_planner_startup", time.Now().Add(30*time.Second), planAndScheduleTweets)

	runner.Register("research_daily_digest", "0 2 * * *", func(ctx context.Context) error {
		_, err := researchAgent.RunDailyResearch(ctx)
		return err
	})
	runner.Register("research_hot_tier", "3h", func(ctx context.Context) error {
		_, err := researchAgent.RunTier(ctx, "hot")
		return err
	})
	runner.Register("research_warm_tier", "10h", func(ctx context.Context) error {
		_, err := researchAgent.RunTier(ctx, "warm")
		return err
	})
	runner.Register("expire_old_approvals", "1h", func(ctx context.Context) error {
		_, err := approvalStore.ExpireOld(ctx, cfg.ExpiryHours)
		return err
	})

	supervisor, err := cron.NewSupervisor(dataPath("heartbeat.json"), logger.Named("supervisor"))
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}
	orchestrator := cron.NewOrchestrator(runner, supervisor, 15*time.Second)

	// --- HTTP surface ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"version":"%s","commit":"%s","date":"%s"}`+"\n", version, commit, date)
	})
	mux.Handle("GET /metrics", telemetry.Handler())
	mux.Handle("GET /mcp", auth.BearerMiddleware(cfg.OperatorTokenHash, mcpSrv.Handler()))
	mux.Handle("POST /mcp", auth.BearerMiddleware(cfg.OperatorTokenHash, mcpSrv.Handler()))
	mux.Handle("GET /api/v1/budget/{project}", auth.BearerMiddleware(cfg.OperatorTokenHash, budgetStatusHandler(tokenBudget)))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting operator",
		zap.String("addr", cfg.ListenAddr),
		zap.String("version", version),
		zap.String("data_dir", cfg.DataDir),
	)

	sched.Start(ctx)
	if err := orchestrator.Start(ctx, "running"); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	orchestrator.Stop("stopped")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown error", zap.Error(err))
	}

	return nil
}

// scheduleTweetGeneration registers one date-triggered generation job per
// plan slot, firing 30 minutes before the post time so the operator has a
// draft to review before it's due (spec §4.3 line 191, §4.7.5). Each job
// id is deterministic (tweet_gen_<date>_<i>), and any prior job under that
// id is cancelled first, so re-planning the same date never double-fires
// a generation (invariant #10). Slots whose generation time has already
// passed are skipped, grounded on main.py's _plan_and_schedule_tweets.
func scheduleTweetGeneration(runner *cron.Runner, growthAgent *growth.Agent, plan growth.Plan) {
	now := time.Now().UTC()
	for i, slot := range plan.SlotTimes {
		genTime := slot.Add(-30 * time.Minute)
		jobID := fmt.Sprintf("tweet_gen_%s_%d", plan.ScheduleDate, i)
		runner.CancelOnce(jobID)
		if genTime.Before(now) {
			continue
		}
		slotLabel := slot.UTC().Format("15:04 MST")
		runner.ScheduleOnce(jobID, genTime, func(ctx context.Context) error {
			return growthAgent.GenerateSlotTweet(ctx, slotLabel)
		})
	}
}

// budgetStatusHandler reports a project's current daily/monthly spend
// against its configured ceilings. Nothing in this repo calls
// budget.Tracker.RecordSpend yet — the execution paths
// (operations.Agent.ExecuteAction) take a raw action payload with no
// project/cost_estimate threading back to the originating Approval row,
// and wiring that through is future work, not something to bolt on here.
// This endpoint at least makes the ceilings an operator already set via
// SetLimits observable.
func budgetStatusHandler(tracker *budget.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project := r.PathValue("project")
		status, err := tracker.Get(r.Context(), project)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}
}
