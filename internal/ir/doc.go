// Package ir provides the constrained value types shared by every layer of
// lazyset: entity field values, identity keys, query literals and rows
// scanned back from the store.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - IRNull is a value, not a missing field; identity keys are never IRNull
//   - Key equality is defined on canonical bytes (see MarshalCanonical),
//     so IRInt(1) and IRString("1") are different keys
package ir
