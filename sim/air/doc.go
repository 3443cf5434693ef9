// Package air defines the network entities the simulator operates on:
// legs, buckets, paths, fares, demand units, and booking curves.
//
// Definitions (carrier, origin, capacity, prices) are created once from
// configuration and are read-only during a run. The counters hanging off
// them (sold, revenue, authorization, forecasts) are per-sample state,
// reset by the controller at the top of each sample.
package air
