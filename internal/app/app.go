// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/coursetrack/internal/auth"
	"github.com/hitoshi/coursetrack/internal/catalog"
	"github.com/hitoshi/coursetrack/internal/config"
	"github.com/hitoshi/coursetrack/internal/database"
	"github.com/hitoshi/coursetrack/internal/handler"
	"github.com/hitoshi/coursetrack/internal/learner"
	"github.com/hitoshi/coursetrack/internal/logger"
	"github.com/hitoshi/coursetrack/internal/metrics"
	"github.com/hitoshi/coursetrack/internal/middleware"
	"github.com/hitoshi/coursetrack/internal/repository"
	"github.com/hitoshi/coursetrack/internal/security"
	"github.com/hitoshi/coursetrack/internal/syncclient"
	"github.com/hitoshi/coursetrack/internal/watch"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// track はクライアントモードのため、DB接続設定を要求しない
	if cmd == CommandTrack {
		logger.SetupDefault(w)
		return runTrack(config.LoadTrack(), args[1:], os.Stdin)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	learnerRepo := repository.NewPostgresLearnerRepo(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sanitizer := security.NewNoteSanitizer()

	// 4. ドメインサービスの初期化
	authService := auth.NewService(learnerRepo, collector, nil)
	progressService := learner.NewService(learnerRepo, sanitizer, collector)
	directoryService := learner.NewDirectoryService(learnerRepo, nil)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		LearnerFinder:     learnerRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		RecordHTTPStatus:  collector.RecordHTTPStatus,

		AuthService:      authService,
		ProgressService:  progressService,
		DirectoryService: directoryService,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// rateLimiterConfig は設定のreq/min値からレートリミッター設定を構築する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = perMinute(cfg.RateLimitGeneral)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitNoteSave > 0 {
		rlCfg.NoteSaveRate = perMinute(cfg.RateLimitNoteSave)
		rlCfg.NoteSaveBurst = cfg.RateLimitNoteSave
	}
	return rlCfg
}

// perMinute はreq/min値をrate.Limit（req/sec）に変換する。
func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// runTrack は視聴トラッカーモードで起動する。
//
// 使い方: coursetrack track <username> <password> <lectureId>
//
// ログインしてセッションを開始し、ティッカーで視聴時間を累積する。
// 標準入力の行コマンドが可視性シグナルの入力源となる:
//
//	pause  - 画面非表示（累積を停止）
//	resume - 画面表示・ユーザー操作（累積を再開）
//	quit   - トラッカーを終了
//
// 完了閾値に到達すると完了をサーバーに1回だけ報告する。
// 報告後もquitまたはEOFまでセッションは継続する。
func runTrack(cfg *config.Config, args []string, input io.Reader) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: track <username> <password> <lectureId>")
	}
	username, password, lectureID := args[0], args[1], args[2]

	httpClient := &http.Client{Timeout: cfg.SyncTimeout}
	client := syncclient.NewClient(httpClient, slog.Default(), nil, cfg.SyncBaseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	record, err := client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	slog.Info("logged in",
		slog.String("principal_id", record.ID),
		slog.Int("completed_count", len(record.Completed)),
	)

	durations := catalog.Fixed(cfg.WatchDefaultDuration)
	session := watch.NewSession(watch.SessionConfig{
		LectureID:         lectureID,
		EstimatedDuration: durations.EstimatedDuration(lectureID),
		CompletionRatio:   cfg.WatchCompletionRatio,
		TickInterval:      cfg.WatchTickInterval,
		AlreadyCompleted:  record.HasCompleted(lectureID),
	}, nil)

	monitor := watch.NewVisibilityMonitor(session)
	tracker := watch.NewTracker(session, client, slog.Default(), cfg.WatchTickInterval)

	// 起動時点で画面表示とみなし視聴を開始する
	monitor.OnVisible()
	go tracker.Start(ctx)

	// シグナルでも終了できるようにする
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "pause":
			monitor.OnHidden()
		case "resume":
			monitor.OnVisible()
		case "quit":
			cancel()
			return nil
		case "":
			// 空行はユーザー操作として扱う
			monitor.OnInteraction()
		}
	}

	return scanner.Err()
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
