package captcha

import (
	"bytes"
	"image/color"

	"github.com/mojocn/base64Captcha"
)

// Base64CaptchaRenderer draws text with the base64Captcha string driver,
// which adds its own hollow and slime lines plus noise glyphs.
type Base64CaptchaRenderer struct {
	driver *base64Captcha.DriverString
}

func NewBase64CaptchaRenderer(width, height, noise int, alphabet string) *Base64CaptchaRenderer {
	if alphabet == "" {
		alphabet = DefaultAlphabets.Mixed
	}
	driver := base64Captcha.NewDriverString(
		height,
		width,
		noise,
		base64Captcha.OptionShowHollowLine|base64Captcha.OptionShowSlimeLine,
		DefaultLength,
		alphabet,
		&color.RGBA{R: 255, G: 255, B: 255, A: 255},
		nil,
		nil,
	)
	return &Base64CaptchaRenderer{driver: driver}
}

func (r *Base64CaptchaRenderer) Render(text string) ([]byte, error) {
	item, err := r.driver.DrawCaptcha(text)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := item.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
