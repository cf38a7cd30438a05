package wlan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/notify"
)

// ScanCompletionBound is how long the platform allows a scan to run.
// Drivers must finish within this window, so scans are spaced by it.
const ScanCompletionBound = 4 * time.Second

// ScanResult is the outcome of a scan request.
type ScanResult struct {
	// Refreshed is set when the scan list refresh notification arrived
	// before the timeout.
	Refreshed bool
	// Seq is the bus sequence number of the refresh notification.
	Seq int64
	// Networks is the BSS list joined with the available network list,
	// read after the refresh (or after the timeout).
	Networks []Network
}

// ScanAndWait requests a scan and waits for the scan-list-refresh
// notification on b. A timeout is reported through Match.TimedOut and is
// not an error. The expectation is registered before the scan is issued
// so a fast driver cannot race it.
func ScanAndWait(ctx context.Context, a Adapter, b *bus.Bus, ssid string, timeout time.Duration) (bus.Match, error) {
	if err := ValidateSSID(ssid); err != nil {
		return bus.Match{}, err
	}

	exp := bus.Expect(b, notify.ACM(notify.ACMScanListRefresh))
	if err := a.Scan(ctx, ssid); err != nil {
		exp.Cancel()
		return bus.Match{}, fmt.Errorf("trigger scan: %w", err)
	}
	return exp.Wait(ctx, timeout)
}

// Scanner issues rate limited scans and collects their results.
type Scanner struct {
	adapter Adapter
	bus     *bus.Bus
	limiter *rate.Limiter
	timeout time.Duration
	log     *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScanInterval sets the minimum spacing between scan requests.
// Zero or negative disables limiting.
func WithScanInterval(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		if d <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithScanTimeout bounds the wait for the refresh notification.
func WithScanTimeout(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithScanLogger sets the scanner logger.
func WithScanLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScanner creates a scanner over a and b. By default scans are spaced by
// ScanCompletionBound and each waits up to 2*ScanCompletionBound.
func NewScanner(a Adapter, b *bus.Bus, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		adapter: a,
		bus:     b,
		limiter: rate.NewLimiter(rate.Every(ScanCompletionBound), 1),
		timeout: 2 * ScanCompletionBound,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan waits for the rate limiter, scans for ssid ("" for all networks) and
// returns the joined network list.
func (s *Scanner) Scan(ctx context.Context, ssid string) (ScanResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ScanResult{}, fmt.Errorf("scan rate limit: %w", err)
	}

	start := time.Now()
	m, err := ScanAndWait(ctx, s.adapter, s.bus, ssid, s.timeout)
	if err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Refreshed: !m.TimedOut, Seq: m.Seq}
	if m.TimedOut {
		s.log.Warn("scan list refresh not observed, reading current lists",
			"ssid", ssid,
			"timeout", s.timeout,
		)
	} else {
		s.log.Debug("scan list refreshed", "ssid", ssid, "seq", m.Seq, "elapsed", time.Since(start))
	}

	networks, err := s.adapter.AvailableNetworks(ctx)
	if err != nil {
		return res, fmt.Errorf("available networks: %w", err)
	}
	bss, err := s.adapter.BSSList(ctx, ssid)
	if err != nil {
		return res, fmt.Errorf("bss list: %w", err)
	}

	res.Networks = JoinNetworks(FilterAvailable(networks), bss)
	return res, nil
}
