package scrape

import (
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockDenied     BlockType = "access_denied"
)

// shellLimit is the size below which a page that only asks for JavaScript
// is treated as an empty shell.
const shellLimit = 2000

// DetectBlock checks page markup for signs of anti-bot protection or a
// client-rendered shell with no server-side content.
func DetectBlock(body string) (bool, BlockType) {
	lower := strings.ToLower(body)

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "captcha-container") {
		return true, BlockCaptcha
	}

	if len(body) < shellLimit {
		if strings.Contains(lower, "access denied") || strings.Contains(lower, "403 forbidden") {
			return true, BlockDenied
		}
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
