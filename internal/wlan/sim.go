package wlan

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/roach88/roamwatch/internal/notify"
)

// Sim is an Adapter that replays a Script.
//
// Script events are delivered in order after Subscribe, each after its
// After delay. Scan requests are answered according to Script.Scan.
type Sim struct {
	script *Script
	log    *slog.Logger

	mu      sync.Mutex
	fn      func(notify.Raw)
	closed  bool
	scans   []string
	stop    chan struct{}
	done    chan struct{}
	pending sync.WaitGroup
}

// NewSim creates a simulated adapter for script.
func NewSim(script *Script, logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		script: script,
		log:    logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Interfaces implements Adapter.
func (s *Sim) Interfaces(context.Context) ([]Interface, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(s.script.Interfaces) == 0 {
		return nil, ErrNoInterface
	}
	return slices.Clone(s.script.Interfaces), nil
}

// Subscribe implements Adapter. Playback of the script starts immediately.
// Only one subscriber is supported, as with the platform API.
func (s *Sim) Subscribe(fn func(notify.Raw)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAdapterClosed
	}
	if s.fn != nil {
		return errors.New("wlan: sim adapter already has a subscriber")
	}
	s.fn = fn

	go s.play()
	return nil
}

// Done is closed when every script event has been delivered or the adapter
// is closed.
func (s *Sim) Done() <-chan struct{} {
	return s.done
}

func (s *Sim) play() {
	defer close(s.done)

	for i, ev := range s.script.Events {
		if !s.sleep(ev.After) {
			return
		}
		raw, err := ev.Raw()
		if err != nil {
			// Scripts are validated on load.
			s.log.Error("skipping invalid script event", "index", i, "error", err)
			continue
		}
		s.emit(raw)
	}
	s.log.Debug("sim script finished", "events", len(s.script.Events))
}

func (s *Sim) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.stop:
		return false
	case <-t.C:
		return true
	}
}

func (s *Sim) emit(raw notify.Raw) {
	s.mu.Lock()
	fn := s.fn
	closed := s.closed
	s.mu.Unlock()
	if fn == nil || closed {
		return
	}
	fn(raw)
}

// Scan implements Adapter.
func (s *Sim) Scan(ctx context.Context, ssid string) error {
	if err := ValidateSSID(ssid); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAdapterClosed
	}
	s.scans = append(s.scans, ssid)
	s.pending.Add(1)
	s.mu.Unlock()

	cfg := s.script.Scan
	go func() {
		defer s.pending.Done()
		if cfg.Respond == ScanRespondNone || !s.sleep(cfg.Delay) {
			return
		}
		if cfg.Respond == ScanRespondFail {
			s.emit(notify.Raw{
				Source:  notify.SourceACM,
				Code:    uint32(notify.ACMScanFail),
				Payload: notify.EncodeUint32Payload(cfg.FailReason),
			})
			return
		}
		s.emit(notify.Raw{Source: notify.SourceACM, Code: uint32(notify.ACMScanComplete)})
		s.emit(notify.Raw{Source: notify.SourceACM, Code: uint32(notify.ACMScanListRefresh)})
	}()
	return nil
}

// Scans returns the SSIDs of every scan requested so far ("" for undirected).
func (s *Sim) Scans() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scans)
}

// AvailableNetworks implements Adapter. Like the platform, the raw list may
// contain hidden and duplicate entries.
func (s *Sim) AvailableNetworks(context.Context) ([]AvailableNetwork, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return slices.Clone(s.script.Networks), nil
}

// BSSList implements Adapter. A non-empty ssid filters the list.
func (s *Sim) BSSList(_ context.Context, ssid string) ([]BSSEntry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []BSSEntry
	for _, b := range s.script.BSS {
		if ssid != "" && b.SSID != ssid {
			continue
		}
		mac, err := net.ParseMAC(b.BSSID)
		if err != nil {
			return nil, err
		}
		out = append(out, BSSEntry{
			SSID:        b.SSID,
			BSSID:       mac,
			RSSI:        b.RSSI,
			LinkQuality: b.LinkQuality,
			Frequency:   b.Frequency,
		})
	}
	return out, nil
}

// Close stops playback and pending scan responses. Safe to call multiple times.
func (s *Sim) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subscribed := s.fn != nil
	close(s.stop)
	s.mu.Unlock()

	s.pending.Wait()
	if !subscribed {
		close(s.done)
	} else {
		<-s.done
	}
	return nil
}

func (s *Sim) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrAdapterClosed
	}
	return nil
}
