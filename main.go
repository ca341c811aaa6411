package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/simplecaptcha/captcha"
	"github.com/cppla/simplecaptcha/config"
	"github.com/cppla/simplecaptcha/controllers"
	"github.com/cppla/simplecaptcha/models"
	"github.com/cppla/simplecaptcha/routes"
	"github.com/cppla/simplecaptcha/settings"
	"github.com/cppla/simplecaptcha/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := buildStore(ctx, cfg)
	provider := buildProvider(cfg)

	alphabets := captcha.DefaultAlphabets
	if cfg.CaptchaAlphabetUpper != "" {
		alphabets.Upper = cfg.CaptchaAlphabetUpper
	}
	if cfg.CaptchaAlphabetMixed != "" {
		alphabets.Mixed = cfg.CaptchaAlphabetMixed
	}

	generator := captcha.NewGenerator(store,
		captcha.WithRenderer(buildRenderer(cfg, alphabets)),
		captcha.WithAlphabets(alphabets),
		captcha.WithGeneratorLogger(utils.Logger.Named("captcha")),
	)
	verifier := captcha.NewVerifier(store, utils.Logger.Named("captcha"))

	r := routes.SetupRouter(cfg, controllers.NewCaptchaController(provider, generator, verifier, utils.Logger))

	utils.Sugar.Infof("Starting server on port %s (graceful), store=%s renderer=%s settings=%s",
		cfg.AppPort, cfg.CaptchaStore, cfg.CaptchaRenderer, cfg.CaptchaSettingsSource)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func buildStore(ctx context.Context, cfg config.AppConfig) captcha.Store {
	switch cfg.CaptchaStore {
	case "redis":
		rc, err := utils.NewRedis(cfg)
		if err != nil {
			utils.Logger.Fatal("captcha redis store unavailable", zap.Error(err))
		}
		return captcha.NewRedisStore(rc, cfg.CaptchaKeyPrefix)
	case "memory":
	default:
		utils.Sugar.Warnf("unknown captcha store %q, using memory", cfg.CaptchaStore)
	}
	// Single process only; a multi-instance deployment needs the redis store
	ms := captcha.NewMemoryStore()
	ms.StartJanitor(ctx, time.Minute, utils.Logger.Named("captcha"))
	return ms
}

func buildRenderer(cfg config.AppConfig, alphabets captcha.Alphabets) captcha.Renderer {
	switch cfg.CaptchaRenderer {
	case "base64captcha":
		return captcha.NewBase64CaptchaRenderer(180, 60, 20, alphabets.Mixed)
	case "gg":
	default:
		utils.Sugar.Warnf("unknown captcha renderer %q, using gg", cfg.CaptchaRenderer)
	}
	return captcha.NewGGRenderer()
}

func buildProvider(cfg config.AppConfig) settings.Provider {
	if cfg.CaptchaSettingsSource != "database" {
		return settings.NewStatic(cfg.Captcha)
	}
	db, err := config.InitDatabase(&models.InstalledModule{})
	if err != nil {
		utils.Logger.Fatal("captcha settings database unavailable", zap.Error(err))
	}
	return settings.NewDatabase(db, cfg.Captcha)
}
