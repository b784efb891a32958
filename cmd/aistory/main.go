package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iabetor/aistory/internal/config"
	"github.com/iabetor/aistory/internal/database"
	"github.com/iabetor/aistory/internal/image"
	"github.com/iabetor/aistory/internal/library"
	"github.com/iabetor/aistory/internal/llm"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/notify"
	"github.com/iabetor/aistory/internal/pipeline"
	"github.com/iabetor/aistory/internal/server"
	"github.com/iabetor/aistory/internal/story"
	"github.com/iabetor/aistory/internal/translate"
	"github.com/iabetor/aistory/internal/tts"
)

func main() {
	configPath := flag.String("config", "configs/aistory.yaml", "配置文件路径（.yaml 或 .toml）")
	addr := flag.String("addr", "", "监听地址，覆盖配置文件中的 server.addr")
	flag.Parse()

	// .env.local 优先于 .env；已存在的环境变量不会被覆盖
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "读取 %s 失败: %v\n", f, err)
		}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Errorf("[main] %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("[main] AI Story 已停止")
}

// loadConfig 读取配置文件，文件不存在时使用默认配置。
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config) error {
	logger.Infof("[main] AI Story 启动中 (llm=%s, image=%s, tts=%s)", cfg.LLM.Provider, cfg.Image.Provider, cfg.TTS.Engine)
	timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second

	provider, err := llm.New(llm.ModelConfig{
		Provider:    cfg.LLM.Provider,
		APIURL:      cfg.LLM.APIURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     timeout,
	})
	if err != nil {
		return err
	}

	images, err := image.New(image.Config{
		Provider:      cfg.Image.Provider,
		APIURL:        cfg.Image.APIURL,
		APIToken:      cfg.Image.APIToken,
		Model:         cfg.Image.Model,
		Seed:          cfg.Image.Seed,
		Steps:         cfg.Image.Steps,
		GuidanceScale: cfg.Image.GuidanceScale,
		Timeout:       timeout,
		PublicDir:     cfg.Server.PublicDir,
	})
	if err != nil {
		return err
	}

	translator, err := translate.New(translate.Config{
		Provider:  cfg.Translate.Provider,
		Target:    cfg.Translate.Target,
		SecretID:  cfg.Translate.Tencent.SecretID,
		SecretKey: cfg.Translate.Tencent.SecretKey,
		Region:    cfg.Translate.Tencent.Region,
	}, provider)
	if err != nil {
		return err
	}

	// 历史记录可选
	var lib *library.Store
	if cfg.Storage.DBPath != "" {
		db, err := database.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}
		lib = library.NewStore(db)
	}

	pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		return err
	}
	defer pub.Close()
	recorder := server.NewRecorder(lib, pub)

	// TTS 引擎在第一次合成时才创建，kokoro 模型加载较慢
	engine := tts.NewShared(func(ctx context.Context) (tts.Engine, error) {
		return tts.New(cfg.TTS, timeout)
	})
	defer engine.Close()

	srv := server.New(server.Deps{
		Addr:           cfg.Server.Addr,
		PublicDir:      cfg.Server.PublicDir,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: timeout,
		VoiceEngine:    cfg.TTS.Engine,
		Stories:        story.NewGenerator(provider),
		Images:         images,
		Archiver:       image.NewArchiver(cfg.Server.PublicDir),
		Translator:     translator,
		Engine:         engine,
		Library:        lib,
		Recorder:       recorder,
		Audio: pipeline.NewRunner(pipeline.Config{
			PublicDir:  cfg.Server.PublicDir,
			TempDir:    cfg.Server.TempDir,
			Engine:     engine,
			Merger:     pipeline.NewFFmpegMerger(cfg.Merge.FFmpegPath),
			OnComplete: recorder.Audio,
		}),
	})

	// 监听系统信号，优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("[main] 收到退出信号，正在关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
