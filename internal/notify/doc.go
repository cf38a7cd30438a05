// Package notify models decoded wireless adapter notifications.
//
// The platform emits discrete notifications tagged with a source (connection
// manager, media state, 802.1X, hosted network) and a numeric code. Decode
// turns one raw notification into an immutable Event value; every Event
// exposes a Discriminant, the (category, subtype) pair used for matching
// without looking at payload contents.
//
// # Variants
//
//   - ConnectionManager: ACM notifications (connection start/complete, scans, ...)
//   - MediaState: MSM notifications (associating, authenticating, roaming, ...)
//   - Authentication: 802.1X notifications
//   - HostedNetwork: hosted network notifications
//   - Unclassified: codes that could not be mapped to a known subtype
//
// Events are values. They are safe to copy and share between goroutines.
package notify
