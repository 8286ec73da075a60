// Package model defines the canonical domain records shared across the
// terminal backend.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Optional numerics: *float64 / *int64, nil meaning "value absent";
//     absent fields never overwrite previously known values on merge
//   - IDs: string symbols (e.g. "BTC-PERP")
package model
