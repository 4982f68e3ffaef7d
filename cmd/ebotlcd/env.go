package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mzyy94/ebotlcd/internal/config"
	"github.com/mzyy94/ebotlcd/internal/lcd"
)

// profileFromEnv starts from EBOTLCD_PROFILE and applies the individual
// overrides. The result is validated.
func profileFromEnv() (lcd.Profile, error) {
	p, err := lcd.LookupProfile(envStr("EBOTLCD_PROFILE", lcd.DefaultProfile().Name))
	if err != nil {
		return p, err
	}

	vid, err := envUint("EBOTLCD_VID", uint64(p.VendorID), 16)
	if err != nil {
		return p, err
	}
	pid, err := envUint("EBOTLCD_PID", uint64(p.ProductID), 16)
	if err != nil {
		return p, err
	}
	ep, err := envUint("EBOTLCD_ENDPOINT", uint64(p.Endpoint), 8)
	if err != nil {
		return p, err
	}
	p.VendorID, p.ProductID, p.Endpoint = uint16(vid), uint16(pid), uint8(ep)

	p.Interface = envInt("EBOTLCD_INTERFACE", p.Interface)
	p.Timeout = time.Duration(envInt("EBOTLCD_TIMEOUT_MS", int(p.Timeout/time.Millisecond))) * time.Millisecond
	p.RoundDelay = time.Duration(envInt("EBOTLCD_ROUND_DELAY_US", int(p.RoundDelay/time.Microsecond))) * time.Microsecond

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// settingsFromEnv overrides the stored settings with EBOTLCD_PATTERN,
// EBOTLCD_IMAGE and EBOTLCD_FPS.
func settingsFromEnv(s config.Settings) config.Settings {
	if v := os.Getenv("EBOTLCD_PATTERN"); v != "" {
		s.Pattern, s.ImagePath = v, ""
	}
	s.ImagePath = envStr("EBOTLCD_IMAGE", s.ImagePath)
	s.FPS = envFloat("EBOTLCD_FPS", s.FPS)
	if s.FPS <= 0 {
		s.FPS = config.DefaultSettings().FPS
	}
	return s
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envUint parses key as an unsigned number; "0x" prefixes are accepted.
func envUint(key string, fallback uint64, bits int) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 0, bits)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
