// Command elon runs the autonomous code-improvement agent as a sidecar
// process: it wires the safety kernel, work queue, constraint engine, spec
// executor, observer and scheduler together, then either drives one
// invocation from the command line or serves a small HTTP surface for a
// dashboard to drive and a cron timer to drive unattended.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhmac/elon/pkg/capability"
	"github.com/jhmac/elon/pkg/config"
	"github.com/jhmac/elon/pkg/constraint"
	"github.com/jhmac/elon/pkg/costledger"
	"github.com/jhmac/elon/pkg/executor"
	"github.com/jhmac/elon/pkg/mutator"
	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/oracle"
	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/queue"
	"github.com/jhmac/elon/pkg/retention"
	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/scheduler"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	repoRoot := flag.String("repo-root", getEnv("ELON_REPO_ROOT", "."), "Path to the host application's repository root")
	dataDir := flag.String("data-dir", getEnv("ELON_DATA_DIR", "./elon-data"), "Path to elon's data directory")
	mode := flag.String("mode", getEnv("ELON_MODE", "serve"), "serve | cycle | loop | fix-all")
	cronSpec := flag.String("cron", getEnv("ELON_CRON", "*/15 * * * *"), "cron expression driving the background runLoop in serve mode")
	flag.Parse()

	envPath := filepath.Join(*repoRoot, ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("creating data directory: %v", err)
	}

	cfg, err := config.Initialize(*repoRoot, *dataDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}
	slog.Info("elon configuration loaded", "repoRoot", *repoRoot, "dataDir", *dataDir, "mode", cfg.Goals.Mode, "phase", cfg.Goals.Phase)

	identityGuard := safety.NewIdentityGuard(*repoRoot, filepath.Join(*dataDir, "identity-checksums.json"), nil)
	if err := identityGuard.Initialize(); err != nil {
		log.Fatalf("pinning identity file checksums: %v", err)
	}
	kernel := safety.NewKernel(
		safety.Policy{SafePaths: cfg.SafePaths, NeverTouch: cfg.NeverTouch},
		safety.DefaultCommandPolicy(),
		identityGuard,
	)

	bus := progress.New()
	attachRenderer(bus)

	q, err := queue.New(*dataDir)
	if err != nil {
		log.Fatalf("opening work queue: %v", err)
	}

	logStore, err := constraint.OpenLog(filepath.Join(*dataDir, "elon-log.json"))
	if err != nil {
		log.Fatalf("opening engine log: %v", err)
	}

	ledger, err := costledger.Open(filepath.Join(*dataDir, "cost-ledger.json"), costledger.DefaultRates, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("opening cost ledger: %v", err)
	}

	o := newOracle(cfg)

	m := mutator.New(*repoRoot, filepath.Join(*dataDir, "backups"), kernel)
	exec := executor.New(o, m, kernel, ledger, bus, cfg.Engine.OracleModel)

	engine := constraint.New(o, logStore, q, kernel, ledger, bus, cfg.Engine.OracleModel)
	engine.BudgetMax = cfg.Engine.Budget
	engine.AutoApproveCategory = map[string]bool{}
	for _, category := range cfg.Engine.AutoApproveCategory {
		engine.AutoApproveCategory[category] = true
	}

	capabilities := capability.NewRegistry()
	obs := observer.New(&http.Client{Timeout: 15 * time.Second}, capabilities)

	ret := retention.NewService(retention.Config{
		BackupDir:        filepath.Join(*dataDir, "backups"),
		KnownErrorsPath:  filepath.Join(*dataDir, "known-errors.json"),
		MaxBackups:       50,
		KnownErrorMaxAge: 30 * 24 * time.Hour,
	})

	sched := scheduler.New(cfg, engine, exec, obs, q, ledger, ret, bus, observer.Config{
		SourceRoot: *repoRoot,
	})
	if err := sched.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("registering scheduler metrics: %v", err)
	}

	switch *mode {
	case "cycle":
		runOneShot(func() error { _, err := sched.SingleCycle(context.Background(), cfg.Engine.Budget); return err })
	case "loop":
		runOneShot(func() error {
			_, err := sched.RunLoop(context.Background(), cfg.Engine.MaxConstraints, cfg.Engine.ContinuousBudget, cfg.Engine.Budget)
			return err
		})
	case "fix-all":
		runOneShot(func() error {
			_, err := sched.FixAll(context.Background(), cfg.Engine.ContinuousMaxRounds, cfg.Engine.Budget, cfg.Engine.Budget, cfg.Engine.MaxConstraints)
			return err
		})
	case "serve":
		serve(sched, ret, *dataDir, *cronSpec, httpPort)
	default:
		log.Fatalf("unknown -mode %q, want serve|cycle|loop|fix-all", *mode)
	}
}

func newOracle(cfg *config.Config) oracle.Oracle {
	endpoint := cfg.Engine.OracleEndpoint
	if endpoint == "" {
		endpoint = getEnv("ELON_ORACLE_ENDPOINT", "http://localhost:11434/v1/complete")
	}
	apiKey := os.Getenv("ELON_ORACLE_API_KEY")
	return oracle.NewHTTPOracle(endpoint, apiKey, cfg.Engine.OracleModel, 15*time.Second)
}

func runOneShot(fn func() error) {
	if err := fn(); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

// serve starts the retention sweeper, the background cron-driven runLoop,
// and a minimal HTTP surface for an external dashboard (explicitly out of
// scope for this system) to poll health and request a stop or an ad-hoc
// cycle.
func serve(sched *scheduler.Scheduler, ret *retention.Service, dataDir, cronSpec, httpPort string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ret.Start(ctx)
	defer ret.Stop()

	timer := scheduler.NewTimer(sched)
	if _, err := timer.AddRunLoop(cronSpec, 3, 0, 0); err != nil {
		log.Fatalf("scheduling runLoop on %q: %v", cronSpec, err)
	}
	timer.Start()
	defer func() { <-timer.Stop().Done() }()

	router := gin.Default()
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.POST("/stop", func(c *gin.Context) {
		if err := os.WriteFile(filepath.Join(dataDir, scheduler.StopFlagName), nil, 0o644); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "stop-requested"})
	})
	router.POST("/cycle", func(c *gin.Context) {
		go func() {
			if _, err := sched.SingleCycle(context.Background(), 0); err != nil {
				slog.Error("ad-hoc cycle failed", "error", err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": "cycle-started"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	slog.Info("elon HTTP surface listening", "port", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

// attachRenderer subscribes a terminal-colored line renderer to bus when
// stdout is a real TTY, matching the level-to-color mapping a dashboard's
// own renderer would apply.
func attachRenderer(bus *progress.Bus) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}
	bus.Subscribe(func(e progress.Event) {
		paint := color.New(color.FgWhite)
		switch e.Level {
		case progress.LevelThinking:
			paint = color.New(color.FgCyan)
		case progress.LevelWarn:
			paint = color.New(color.FgYellow)
		case progress.LevelError:
			paint = color.New(color.FgRed, color.Bold)
		case progress.LevelSuccess:
			paint = color.New(color.FgGreen)
		}
		paint.Printf("[%s] %s\n", e.Phase, e.Message)
		if len(e.Detail) > 0 {
			fmt.Println("      ", e.Detail)
		}
	})
}
