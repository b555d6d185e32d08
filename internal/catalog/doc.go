// Package catalog maps short numeric SMS codes to handler kinds.
//
// The catalog is immutable reference data with exact-string lookup. Handler
// kinds are a closed enum so dispatch is a compile-time-checked enumeration
// rather than string comparison; rows with tags the binary does not know
// degrade to a "not implemented" reply.
package catalog
