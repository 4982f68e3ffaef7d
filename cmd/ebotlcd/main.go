package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/mzyy94/ebotlcd/internal/config"
	"github.com/mzyy94/ebotlcd/internal/display"
	"github.com/mzyy94/ebotlcd/internal/joint"
	"github.com/mzyy94/ebotlcd/internal/lcd"
	"github.com/mzyy94/ebotlcd/internal/pattern"
	"github.com/mzyy94/ebotlcd/internal/usblink"
	"github.com/mzyy94/ebotlcd/internal/webui"
)

// Process exit codes.
const (
	exitOK       = 0
	exitConfig   = 1
	exitDevice   = 2
	exitTransfer = 3
	exitCanceled = 4
	exitFailure  = 5
)

func main() {
	logLevel := parseLogLevel(envStr("EBOTLCD_LOG_LEVEL", "info"))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	profile, err := profileFromEnv()
	if err != nil {
		slog.Error("invalid panel configuration", "err", err)
		os.Exit(exitConfig)
	}

	listenPort := envInt("EBOTLCD_LISTEN_PORT", 8080)
	deviceName := envStr("EBOTLCD_DEVICE_NAME", "ElectronBot")

	// Settings: persisted when a data directory is given
	store := config.NewMemoryStore()
	if dir := os.Getenv("EBOTLCD_DATA_DIR"); dir != "" {
		if store, err = config.NewStore(dir); err != nil {
			slog.Error("failed to open settings", "dir", dir, "err", err)
			os.Exit(exitConfig)
		}
	}
	settings := settingsFromEnv(store.Get())

	frame, err := pattern.Resolve(settings.Pattern, settings.ImagePath, profile.Width, profile.Height)
	if err != nil {
		slog.Error("failed to render frame", "pattern", settings.Pattern, "image", settings.ImagePath, "err", err)
		os.Exit(exitConfig)
	}

	host, err := usblink.NewHost()
	if err != nil {
		slog.Error("usb unavailable", "err", err)
		os.Exit(exitDevice)
	}
	disp, err := display.New(host, profile, joint.NewState(settings.Joint))
	if err != nil {
		host.Close()
		slog.Error("invalid panel configuration", "err", err)
		os.Exit(exitConfig)
	}
	defer disp.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if listenPort == 0 {
		code := showOnce(ctx, disp, frame)
		disp.Close()
		cancel()
		os.Exit(code)
	}

	canvas := display.NewCanvas(profile.FrameSize())
	if err := canvas.Set(frame); err != nil {
		slog.Error("invalid frame", "err", err)
		os.Exit(exitConfig)
	}
	interval := time.Duration(float64(time.Second) / settings.FPS)
	streamer := display.StartStreamer(ctx, disp, canvas, interval)
	defer streamer.Stop()

	addr := fmt.Sprintf(":%d", listenPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: logMiddleware(webui.NewHandler(disp, canvas, store, deviceName)),
	}

	// Start mDNS advertisement
	mdnsServer, err := zeroconf.Register(
		deviceName,
		"_ebotlcd._tcp",
		"local.",
		listenPort,
		[]string{
			"txtvers=1",
			"ty=" + deviceName,
			"profile=" + profile.Name,
			fmt.Sprintf("usb=%04x:%04x", profile.VendorID, profile.ProductID),
			fmt.Sprintf("size=%dx%d", profile.Width, profile.Height),
			"path=/api",
		},
		nil,
	)
	if err != nil {
		slog.Warn("mDNS registration failed", "err", err)
	} else {
		defer mdnsServer.Shutdown()
		slog.Info("mDNS registered", "name", deviceName, "service", "_ebotlcd._tcp")
	}

	// Start HTTP server
	go func() {
		slog.Info("control API starting", "addr", addr, "url", fmt.Sprintf("http://%s/", net.JoinHostPort(localIP(), strconv.Itoa(listenPort))))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

// showOnce opens the panel, sends a single frame and returns the exit code.
func showOnce(ctx context.Context, disp *display.Display, frame []byte) int {
	if err := disp.Connect(ctx); err != nil {
		slog.Error("panel connection failed", "err", err)
		return exitCode(err)
	}
	st, err := disp.Show(frame)
	if err != nil {
		slog.Error("frame transfer failed", "err", err)
		return exitCode(err)
	}
	slog.Info("frame sent", "rounds", st.Rounds, "packets", st.Packets, "bytes", st.Bytes, "elapsed", st.Elapsed)
	return exitOK
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitCanceled
	case errors.Is(err, lcd.ErrConfigInconsistent), errors.Is(err, lcd.ErrFrameSize), errors.Is(err, lcd.ErrTrailerSize):
		return exitConfig
	case display.IsReconnect(err):
		return exitDevice
	case errors.Is(err, lcd.ErrTransfer):
		return exitTransfer
	default:
		return exitFailure
	}
}

// localIP returns the address used for outbound traffic, for log lines.
func localIP() string {
	conn, err := net.Dial("udp4", "224.0.0.1:80")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// responseRecorder captures the status code for logging.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(rec, r)
		slog.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
