// Package wlan is the boundary to the wireless adapter.
//
// Adapter abstracts the platform WLAN API: interface enumeration, the
// notification callback, scan requests and the available-network and BSS
// lists. The Windows implementation binds wlanapi.dll; Sim replays a YAML
// script and runs everywhere.
//
// Raw notifications delivered to the Subscribe callback are decoded by the
// caller (see bus.Ingress.HandleRaw). Scanner pairs a scan request with the
// scan-list-refresh notification it produces.
package wlan
