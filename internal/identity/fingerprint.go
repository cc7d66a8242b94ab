package identity

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
)

// TokenLength is the width of generated guest session tokens.
const TokenLength = 32

// Signals are the environment inputs a guest session token is derived from.
type Signals struct {
	UserAgent string
	Screen    string
	Timezone  string
	Locale    string
	PublicIP  string
}

// Fingerprint joins the signals and the millisecond timestamp. The public IP
// is only present when it could be resolved.
func (s Signals) Fingerprint(ts time.Time) string {
	parts := []string{s.UserAgent, s.Screen, s.Timezone, s.Locale}
	if s.PublicIP != "" {
		parts = append(parts, s.PublicIP)
	}
	parts = append(parts, strconv.FormatInt(ts.UnixMilli(), 10))
	return strings.Join(parts, "-")
}

// GenerateSessionID derives a fixed-width token from the fingerprint. The
// fingerprint is hashed before encoding so that every signal, the timestamp
// included, influences the truncated token.
func GenerateSessionID(s Signals, ts time.Time) Token {
	sum := sha256.Sum256([]byte(s.Fingerprint(ts)))
	enc := base64.RawURLEncoding.EncodeToString(sum[:])
	return Token(enc[:TokenLength])
}

type SignalOptions struct {
	Version   string
	ResolveIP bool
	IPEchoURL string
	Client    *http.Client
}

// CollectSignals reads the local environment. A failed public IP lookup
// degrades to a fingerprint without it.
func CollectSignals(ctx context.Context, opts SignalOptions) Signals {
	s := Signals{
		UserAgent: userAgent(opts.Version),
		Screen:    screenSize(),
		Timezone:  timezone(),
		Locale:    locale(),
	}
	if opts.ResolveIP && opts.IPEchoURL != "" {
		ipCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if ip, err := ResolvePublicIP(ipCtx, opts.Client, opts.IPEchoURL); err == nil {
			s.PublicIP = ip
		}
	}
	return s
}

func userAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("snowboard-doctor/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH)
}

func screenSize() string {
	w, h, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 || h <= 0 {
		return "0x0"
	}
	return fmt.Sprintf("%dx%d", w, h)
}

func timezone() string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		return tz
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if idx := strings.Index(target, "zoneinfo/"); idx >= 0 {
			return filepath.ToSlash(target[idx+len("zoneinfo/"):])
		}
	}
	return time.Now().Location().String()
}

// locale maps POSIX locale variables to a BCP 47 style tag, e.g.
// "en_US.UTF-8" becomes "en-US".
func locale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(key)
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		if idx := strings.IndexAny(val, ".@"); idx >= 0 {
			val = val[:idx]
		}
		return strings.ReplaceAll(val, "_", "-")
	}
	return "en-US"
}
