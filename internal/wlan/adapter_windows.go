//go:build windows

package wlan

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/roach88/roamwatch/internal/notify"
)

var (
	wlanapi = windows.NewLazySystemDLL("wlanapi.dll")

	procWlanOpenHandle              = wlanapi.NewProc("WlanOpenHandle")
	procWlanCloseHandle             = wlanapi.NewProc("WlanCloseHandle")
	procWlanEnumInterfaces          = wlanapi.NewProc("WlanEnumInterfaces")
	procWlanRegisterNotification    = wlanapi.NewProc("WlanRegisterNotification")
	procWlanScan                    = wlanapi.NewProc("WlanScan")
	procWlanGetAvailableNetworkList = wlanapi.NewProc("WlanGetAvailableNetworkList")
	procWlanGetNetworkBssList       = wlanapi.NewProc("WlanGetNetworkBssList")
	procWlanFreeMemory              = wlanapi.NewProc("WlanFreeMemory")
)

const (
	clientVersion          = 2
	dot11BssTypeInfra      = 1
	dot11BssTypeAny        = 3
	availableNetworkFlags  = 3 // include all ad hoc and manual hidden profiles
	notificationSourceAll  = uint32(notify.SourceAll)
	maxInterfaceDescLength = 256
)

type dot11SSID struct {
	Length uint32
	SSID   [MaxSSIDLen]byte
}

type wlanInterfaceInfo struct {
	InterfaceGUID windows.GUID
	Description   [maxInterfaceDescLength]uint16
	State         uint32
}

type wlanInterfaceInfoList struct {
	NumberOfItems uint32
	Index         uint32
	Items         [1]wlanInterfaceInfo
}

type wlanAvailableNetwork struct {
	ProfileName            [256]uint16
	SSID                   dot11SSID
	BssType                uint32
	NumberOfBssids         uint32
	NetworkConnectable     int32
	NotConnectableReason   uint32
	NumberOfPhyTypes       uint32
	PhyTypes               [8]uint32
	MorePhyTypes           int32
	SignalQuality          uint32
	SecurityEnabled        int32
	DefaultAuthAlgorithm   uint32
	DefaultCipherAlgorithm uint32
	Flags                  uint32
	Reserved               uint32
}

type wlanAvailableNetworkList struct {
	NumberOfItems uint32
	Index         uint32
	Items         [1]wlanAvailableNetwork
}

type wlanRateSet struct {
	Length  uint32
	RateSet [126]uint16
}

type wlanBssEntry struct {
	SSID                  dot11SSID
	PhyID                 uint32
	BSSID                 [6]byte
	BssType               uint32
	PhyType               uint32
	RSSI                  int32
	LinkQuality           uint32
	InRegDomain           uint8
	BeaconPeriod          uint16
	Timestamp             uint64
	HostTimestamp         uint64
	CapabilityInformation uint16
	ChCenterFrequency     uint32
	RateSet               wlanRateSet
	IEOffset              uint32
	IESize                uint32
}

type wlanBssList struct {
	TotalSize     uint32
	NumberOfItems uint32
	Items         [1]wlanBssEntry
}

type l2NotificationData struct {
	Source        uint32
	Code          uint32
	InterfaceGUID windows.GUID
	DataSize      uint32
	Data          uintptr
}

// The platform keeps the callback pointer for the life of the process, and
// NewCallback slots are never released, so one trampoline serves every
// adapter and dispatches to the active one.
var (
	callbackOnce sync.Once
	callbackPtr  uintptr
	active       atomic.Pointer[windowsAdapter]
)

func notificationCallback(data *l2NotificationData, _ uintptr) uintptr {
	a := active.Load()
	if a == nil || data == nil {
		return 0
	}
	fn := a.handler.Load()
	if fn == nil {
		return 0
	}

	raw := notify.Raw{Source: notify.Source(data.Source), Code: data.Code}
	if data.DataSize > 0 && data.Data != 0 {
		// The buffer is only valid during the callback.
		raw.Payload = append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(data.Data)), data.DataSize)...)
	}
	(*fn)(raw)
	return 0
}

type windowsAdapter struct {
	handle  windows.Handle
	iface   wlanInterfaceInfo
	log     *slog.Logger
	handler atomic.Pointer[func(notify.Raw)]

	closeOnce sync.Once
}

// OpenPlatform opens the WLAN service and binds the first wireless interface.
func OpenPlatform(logger *slog.Logger) (Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := wlanapi.Load(); err != nil {
		return nil, fmt.Errorf("load wlanapi.dll: %w", err)
	}

	var negotiated uint32
	var handle windows.Handle
	if err := call(procWlanOpenHandle,
		clientVersion, 0,
		uintptr(unsafe.Pointer(&negotiated)),
		uintptr(unsafe.Pointer(&handle)),
	); err != nil {
		return nil, fmt.Errorf("WlanOpenHandle: %w", err)
	}

	a := &windowsAdapter{handle: handle, log: logger}
	ifaces, err := a.enumInterfaces()
	if err != nil {
		a.Close()
		return nil, err
	}
	if len(ifaces) == 0 {
		a.Close()
		return nil, ErrNoInterface
	}
	a.iface = ifaces[0]

	logger.Info("wlan adapter opened",
		"client_version", negotiated,
		"interface", windows.UTF16ToString(a.iface.Description[:]),
		"interfaces", len(ifaces),
	)
	return a, nil
}

func (a *windowsAdapter) enumInterfaces() ([]wlanInterfaceInfo, error) {
	var list *wlanInterfaceInfoList
	if err := call(procWlanEnumInterfaces,
		uintptr(a.handle), 0,
		uintptr(unsafe.Pointer(&list)),
	); err != nil {
		return nil, fmt.Errorf("WlanEnumInterfaces: %w", err)
	}
	defer freeMemory(unsafe.Pointer(list))

	items := unsafe.Slice(&list.Items[0], list.NumberOfItems)
	out := make([]wlanInterfaceInfo, len(items))
	copy(out, items)
	return out, nil
}

func (a *windowsAdapter) Interfaces(context.Context) ([]Interface, error) {
	infos, err := a.enumInterfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(infos))
	for _, info := range infos {
		out = append(out, Interface{
			GUID:        info.InterfaceGUID.String(),
			Description: windows.UTF16ToString(info.Description[:]),
			State:       InterfaceStateName(info.State),
		})
	}
	return out, nil
}

func (a *windowsAdapter) Subscribe(fn func(notify.Raw)) error {
	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(notificationCallback)
	})
	a.handler.Store(&fn)
	active.Store(a)

	if err := call(procWlanRegisterNotification,
		uintptr(a.handle),
		uintptr(notificationSourceAll),
		0, // bIgnoreDuplicate
		callbackPtr,
		0, 0, 0,
	); err != nil {
		active.CompareAndSwap(a, nil)
		return fmt.Errorf("WlanRegisterNotification: %w", err)
	}
	return nil
}

func (a *windowsAdapter) Scan(_ context.Context, ssid string) error {
	target, err := ssidArg(ssid)
	if err != nil {
		return err
	}
	if err := call(procWlanScan,
		uintptr(a.handle),
		uintptr(unsafe.Pointer(&a.iface.InterfaceGUID)),
		uintptr(unsafe.Pointer(target)), 0, 0,
	); err != nil {
		return fmt.Errorf("WlanScan: %w", err)
	}
	return nil
}

func (a *windowsAdapter) AvailableNetworks(context.Context) ([]AvailableNetwork, error) {
	var list *wlanAvailableNetworkList
	if err := call(procWlanGetAvailableNetworkList,
		uintptr(a.handle),
		uintptr(unsafe.Pointer(&a.iface.InterfaceGUID)),
		availableNetworkFlags, 0,
		uintptr(unsafe.Pointer(&list)),
	); err != nil {
		return nil, fmt.Errorf("WlanGetAvailableNetworkList: %w", err)
	}
	defer freeMemory(unsafe.Pointer(list))

	items := unsafe.Slice(&list.Items[0], list.NumberOfItems)
	out := make([]AvailableNetwork, 0, len(items))
	for _, n := range items {
		out = append(out, AvailableNetwork{
			SSID:            notify.DecodeSSID(n.SSID.SSID[:], n.SSID.Length),
			BSSCount:        n.NumberOfBssids,
			SignalQuality:   n.SignalQuality,
			SecurityEnabled: n.SecurityEnabled != 0,
			Auth:            AuthName(n.DefaultAuthAlgorithm),
			Cipher:          CipherName(n.DefaultCipherAlgorithm),
		})
	}
	return out, nil
}

// BSSList returns infrastructure BSS entries. A directed query asks for
// secured and open networks separately, as the platform requires a security
// flag when an SSID is given.
func (a *windowsAdapter) BSSList(_ context.Context, ssid string) ([]BSSEntry, error) {
	if ssid == "" {
		return a.bssList(nil, dot11BssTypeAny, false)
	}
	target, err := ssidArg(ssid)
	if err != nil {
		return nil, err
	}
	secured, err := a.bssList(target, dot11BssTypeInfra, true)
	if err != nil {
		return nil, err
	}
	open, err := a.bssList(target, dot11BssTypeInfra, false)
	if err != nil {
		return nil, err
	}
	return append(secured, open...), nil
}

func (a *windowsAdapter) bssList(target *dot11SSID, bssType uint32, security bool) ([]BSSEntry, error) {
	var list *wlanBssList
	var sec uintptr
	if security {
		sec = 1
	}
	if err := call(procWlanGetNetworkBssList,
		uintptr(a.handle),
		uintptr(unsafe.Pointer(&a.iface.InterfaceGUID)),
		uintptr(unsafe.Pointer(target)),
		uintptr(bssType),
		sec, 0,
		uintptr(unsafe.Pointer(&list)),
	); err != nil {
		return nil, fmt.Errorf("WlanGetNetworkBssList: %w", err)
	}
	defer freeMemory(unsafe.Pointer(list))

	items := unsafe.Slice(&list.Items[0], list.NumberOfItems)
	out := make([]BSSEntry, 0, len(items))
	for _, e := range items {
		out = append(out, BSSEntry{
			SSID:        notify.DecodeSSID(e.SSID.SSID[:], e.SSID.Length),
			BSSID:       append(net.HardwareAddr(nil), e.BSSID[:]...),
			RSSI:        e.RSSI,
			LinkQuality: e.LinkQuality,
			Frequency:   e.ChCenterFrequency,
		})
	}
	return out, nil
}

func (a *windowsAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		active.CompareAndSwap(a, nil)
		if e := call(procWlanCloseHandle, uintptr(a.handle), 0); e != nil {
			err = fmt.Errorf("WlanCloseHandle: %w", e)
		}
	})
	return err
}

// ssidArg builds a DOT11_SSID for ssid, or nil when empty.
func ssidArg(ssid string) (*dot11SSID, error) {
	if ssid == "" {
		return nil, nil
	}
	if err := ValidateSSID(ssid); err != nil {
		return nil, err
	}
	s := &dot11SSID{Length: uint32(len(ssid))}
	copy(s.SSID[:], ssid)
	return s, nil
}

// call invokes a wlanapi procedure. They return a Win32 error code.
func call(p *windows.LazyProc, args ...uintptr) error {
	r, _, _ := p.Call(args...)
	if r != 0 {
		return windows.Errno(r)
	}
	return nil
}

func freeMemory(p unsafe.Pointer) {
	if p != nil {
		procWlanFreeMemory.Call(uintptr(p))
	}
}
