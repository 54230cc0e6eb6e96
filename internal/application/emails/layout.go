package emails

import (
	"fmt"
	"html"
	"time"
)

const (
	themePrimary   = "#3b82f6"
	themeTextMain  = "#1e293b"
	themeTextMuted = "#6b7280"
	themeBgBody    = "#f3f4f6"
	themePanel     = "#f8fafc"
	themeWhite     = "#ffffff"
	brandName      = "Marketplace"
)

// EmailLayout wraps content in the shared page chrome: a colored header with
// title, a panel for content and a muted footer.
func EmailLayout(title, contentHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <style>
    body { margin: 0; padding: 0; background-color: %s; font-family: Arial, Helvetica, sans-serif; color: %s; }
    .panel { background-color: %s; padding: 15px; border-radius: 8px; margin: 20px 0; }
    .panel h3 { color: %s; margin: 0 0 10px 0; }
    .panel p { margin: 5px 0; }
    .button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 32px; text-decoration: none; border-radius: 6px; font-weight: 600; }
  </style>
</head>
<body>
  <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: %s; color: white; padding: 20px; border-radius: 8px 8px 0 0;">
      <h1 style="margin: 0; font-size: 24px;">%s</h1>
    </div>
    <div style="background-color: %s; padding: 20px; border: 1px solid #e2e8f0; border-radius: 0 0 8px 8px;">%s</div>
    <div style="text-align: center; margin-top: 20px; color: %s; font-size: 12px;">
      <p>© %d %s</p>
    </div>
  </div>
</body>
</html>`,
		EscapeHTML(title), themeBgBody, themeTextMain, themeWhite, themePrimary, themePrimary,
		themePrimary, EscapeHTML(title), themePanel, contentHTML, themeTextMuted, time.Now().Year(), brandName)
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
