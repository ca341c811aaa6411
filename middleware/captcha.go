package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/simplecaptcha/captcha"
	"github.com/cppla/simplecaptcha/settings"
	"github.com/cppla/simplecaptcha/utils"
)

const (
	CaptchaIDHeader     = "X-Captcha-Id"
	CaptchaAnswerHeader = "X-Captcha-Answer"
	CaptchaIDField      = "captcha_id"
	CaptchaAnswerField  = "captcha_answer"
)

// CaptchaRequired guards a form submission route. Requests pass through when
// the form is not protected; otherwise the attached challenge must verify.
func CaptchaRequired(provider settings.Provider, verifier *captcha.Verifier, form string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		s, err := provider.Settings(ctx.Request.Context())
		if err != nil {
			utils.Logger.Error("load captcha settings", zap.String("form", form), zap.Error(err))
			utils.AbortError(ctx, http.StatusForbidden, 40301, "captcha required")
			return
		}
		if !s.IsFormProtected(form) {
			ctx.Next()
			return
		}

		id, answer := captchaCredentials(ctx)
		if !verifier.Verify(ctx.Request.Context(), id, answer, s) {
			utils.AbortError(ctx, http.StatusForbidden, 40301, "captcha required")
			return
		}
		ctx.Next()
	}
}

func captchaCredentials(ctx *gin.Context) (string, string) {
	id := ctx.GetHeader(CaptchaIDHeader)
	answer := ctx.GetHeader(CaptchaAnswerHeader)
	if id == "" {
		id = ctx.PostForm(CaptchaIDField)
	}
	if answer == "" {
		answer = ctx.PostForm(CaptchaAnswerField)
	}
	return id, answer
}
