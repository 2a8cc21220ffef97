// Package analytics implements the portfolio valuation and performance
// engine: cost basis accumulation, position valuation, portfolio
// aggregation, performer ranking, and time-series alignment for charts.
//
// Every function in this package is a pure transform over its arguments.
// Nothing here touches storage, caches, or the clock; callers fetch the
// ledger and snapshot data first and pass it in. Re-running any function
// against the same input yields identical output.
//
// Missing data is reported through nil pointers and ok=false results,
// never through errors or zero values: a computed 0% is a legitimate
// answer and must stay distinguishable from "no data to compare against".
package analytics
