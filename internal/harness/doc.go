// Package harness runs notification scenarios through the correlation
// engine and checks the outcomes they produce.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: roam_with_retries
//	description: "One auth restart during a roam"
//	events:
//	  - source: msm
//	    type: roaming_start
//	    ssid: Lab
//	    bssid: "00:11:22:33:44:55"
//	  - source: msm
//	    type: authenticating
//	  - source: msm
//	    type: roaming_start
//	  - source: msm
//	    type: roaming_end
//	expect:
//	  outcomes:
//	    - kind: roam
//	      result: with_notes
//	      notes: ["1 auth retries"]
//	  final_state: idle
//	assertions:
//	  - type: trace_order
//	    states: ["roaming(attempting)", "roaming(authenticating:0)"]
//
// Events use the simulated adapter's event format and pass through the same
// encode/decode path as platform notifications.
//
// # Assertion Types
//
//   - trace_contains: some step reached the state
//   - trace_order: states were reached in the given order
//   - trace_count: a state was reached exactly N times
//   - ignored_count: exactly N events drove no transition
//
// # Golden Traces
//
// RunWithGolden renders one line per event and compares the text with
// testdata/golden/<name>.golden:
//
//	scenario: clean_roam
//	#1 msm.roaming_start: idle -> roaming(attempting)
//	#2 msm.authenticating: roaming(attempting) -> roaming(authenticating:0)
//	#3 msm.roaming_end: roaming(authenticating:0) -> roaming(succeeded_clean) => roam clean
//	final: idle
//
// Runs are deterministic: no wall clock, no bus, steps numbered from 1.
package harness
