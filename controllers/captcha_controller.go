package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/simplecaptcha/captcha"
	"github.com/cppla/simplecaptcha/settings"
	"github.com/cppla/simplecaptcha/utils"
)

// CaptchaController serves challenge generation, verification and frontend config.
type CaptchaController struct {
	provider  settings.Provider
	generator *captcha.Generator
	verifier  *captcha.Verifier
	log       *zap.Logger
}

func NewCaptchaController(provider settings.Provider, generator *captcha.Generator, verifier *captcha.Verifier, log *zap.Logger) *CaptchaController {
	if log == nil {
		log = zap.NewNop()
	}
	return &CaptchaController{provider: provider, generator: generator, verifier: verifier, log: log}
}

// generateResponse is the body of GET /captcha/generate.
type generateResponse struct {
	Enabled  bool    `json:"enabled"`
	ID       string  `json:"id,omitempty"`
	Type     string  `json:"type,omitempty"`
	Question string  `json:"question,omitempty"`
	Image    *string `json:"image"`
}

type verifyRequest struct {
	ID     *string `json:"id"`
	Answer *string `json:"answer"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Generate issues a new challenge, or reports the feature as disabled.
func (c *CaptchaController) Generate(ctx *gin.Context) {
	s, err := c.provider.Settings(ctx.Request.Context())
	if err != nil {
		c.log.Error("load captcha settings", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50001, "captcha settings unavailable")
		return
	}
	if !s.Enabled {
		ctx.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	ch, err := c.generator.Generate(ctx.Request.Context(), s)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}

	resp := generateResponse{
		Enabled:  true,
		ID:       ch.ID,
		Type:     string(ch.Type),
		Question: ch.Question,
	}
	if len(ch.Image) > 0 {
		img := "data:image/png;base64," + base64.StdEncoding.EncodeToString(ch.Image)
		resp.Image = &img
	}
	ctx.JSON(http.StatusOK, resp)
}

// Verify consumes the challenge and reports whether the answer was right.
func (c *CaptchaController) Verify(ctx *gin.Context) {
	var req verifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.ID == nil || req.Answer == nil || *req.ID == "" || *req.Answer == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "id and answer are required")
		return
	}

	s, err := c.provider.Settings(ctx.Request.Context())
	if err != nil {
		c.log.Error("load captcha settings", zap.Error(err))
		ctx.JSON(http.StatusOK, verifyResponse{Valid: false})
		return
	}
	ctx.JSON(http.StatusOK, verifyResponse{Valid: c.verifier.Verify(ctx.Request.Context(), *req.ID, *req.Answer, s)})
}

// Config returns what a frontend needs to decide whether to render a captcha.
// With ?form=<name> it also reports whether that form is protected.
func (c *CaptchaController) Config(ctx *gin.Context) {
	s, err := c.provider.Settings(ctx.Request.Context())
	if err != nil {
		c.log.Error("load captcha settings", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50001, "captcha settings unavailable")
		return
	}

	fc := s.FrontendConfig()
	body := gin.H{"enabled": fc.Enabled}
	if fc.Type != "" {
		body["type"] = fc.Type
	}
	if raw, ok := ctx.GetQuery("form"); ok {
		body["form"] = utils.SanitizePlainText(raw)
		body["protected"] = s.IsFormProtected(raw)
	}
	ctx.JSON(http.StatusOK, body)
}
