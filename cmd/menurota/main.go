package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/avesier/menurota/internal/api"
	"github.com/avesier/menurota/internal/catalog"
	"github.com/avesier/menurota/internal/classifier"
	"github.com/avesier/menurota/internal/config"
	"github.com/avesier/menurota/internal/lease"
	"github.com/avesier/menurota/internal/metrics"
	"github.com/avesier/menurota/internal/planner"
	"github.com/avesier/menurota/internal/recurrence"
	"github.com/avesier/menurota/internal/runner"
	"github.com/avesier/menurota/internal/slot"
	"github.com/avesier/menurota/internal/store/postgres"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "migrate":
		os.Exit(runMigrate())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`menurota - recurring menu rotation planner

Usage:
  menurota <command>

Commands:
  serve      Start the planner API and the due-entry runner
  migrate    Create the database schema
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL              PostgreSQL connection string (required)
  CATALOG_URL               Catalog API base URL (required)
  CATALOG_TOKEN             Catalog API bearer token (optional)
  CATALOG_TIMEOUT           Catalog request timeout (default: "10s")
  REDIS_ADDR                Redis address for the run lease (optional;
                            falls back to an in-process lease)
  HTTP_ADDR                 HTTP server address (default: ":8080")

  SCHEDULE_FREQUENCY        daily, weekly or monthly (default: "weekly")
  SCHEDULE_WEEKDAY          Weekday for weekly schedules (default: "monday")
  SCHEDULE_MONTH_DAY        Day of month, 1-31, for monthly schedules (default: "1")
  SCHEDULE_TIME             Time of day as HH:MM (default: "07:00")
  SCHEDULE_TIMEZONE         IANA timezone of the schedule (default: "UTC")

  RUN_SPEC                  Cron expression for the due sweep (default: "@every 1m")
  RUN_BATCH_SIZE            Max due entries per sweep (default: "5")
  LEASE_TTL                 Run lease time-to-live (default: "5m")
  HISTORY_LIMIT             Completed entries kept in the history view (default: "60")
  SLOT_MAX_PROBES           Collision probe bound for new entries (default: "366")

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")
  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	store := postgres.New(db, cfg.DBOpTimeout)
	calc := recurrence.New(cfg.Schedule())
	alloc := slot.New(calc, cfg.SlotMaxProbes)
	catalogClient := catalog.NewHTTPClient(cfg.CatalogURL, cfg.CatalogToken, cfg.CatalogTimeout)

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("menurota: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		// Start metrics HTTP server on separate port
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("menurota: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("menurota: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("menurota: METRICS_ENABLED not set; metrics disabled")
	}

	if metricsSink != nil {
		alloc = alloc.WithMetrics(metricsSink)
	}

	// Wire the run lease: Redis-backed when configured, otherwise a
	// process-local lease good enough for a single instance.
	var runLease runner.Lease
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		runLease = lease.NewRedis(redisClient, lease.DefaultKey, cfg.LeaseTTL)
		log.Printf("menurota: redis run lease enabled (redis=%s, ttl=%s)", cfg.RedisAddr, cfg.LeaseTTL)
	} else {
		runLease = lease.NewLocal(cfg.LeaseTTL)
		log.Println("menurota: REDIS_ADDR not set; using in-process run lease")
	}

	run := runner.New(
		runner.Config{BatchSize: cfg.RunBatchSize},
		store,
		catalogClient,
		runLease,
	)
	if metricsSink != nil {
		run = run.WithMetrics(metricsSink)
	}

	svc := planner.New(store, calc, alloc, run, classifier.Config{HistoryLimit: cfg.HistoryLimit})
	apiHandler := api.NewHandler(svc).WithHealthChecker(db)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiHandler,
	}

	go func() {
		log.Printf("menurota: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("menurota: http server error: %v", err)
		}
	}()

	// The cron trigger drives the due sweep; overlap is prevented by the
	// lease, not the trigger.
	trigger := cron.New()
	if _, err := trigger.AddFunc(cfg.RunSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.LeaseTTL)
		defer cancel()
		if _, err := run.RunDue(ctx); err != nil {
			log.Printf("menurota: due sweep failed: %v", err)
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to schedule due sweep: %v\n", err)
		return exitRuntimeError
	}
	trigger.Start()

	log.Printf("menurota: started (run_spec=%q, http=%s)", cfg.RunSpec, cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("menurota: received signal %v, shutting down", received)

	// Phase 1: Stop the trigger and wait for an in-flight sweep
	log.Println("menurota: stopping due sweep trigger...")
	<-trigger.Stop().Done()
	log.Println("menurota: due sweep trigger stopped")

	// Phase 2: Stop HTTP server with graceful shutdown
	log.Println("menurota: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("menurota: http server shutdown error: %v", err)
	}
	log.Println("menurota: http server stopped")

	// Phase 3: Stop metrics server if running (with same timeout)
	if metricsServer != nil {
		log.Println("menurota: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("menurota: metrics server shutdown error: %v", err)
		}
		log.Println("menurota: metrics server stopped")
	}

	log.Println("menurota: stopped")
	return exitSuccess
}

func runMigrate() int {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "configuration error: DATABASE_URL: required")
		return exitInvalidConfig
	}

	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	store := postgres.New(db, cfg.DBOpTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println("schema up to date")
	return exitSuccess
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	log.Printf("menurota: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("menurota version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
