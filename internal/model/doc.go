// Package model defines the console's domain types.
//
// These mirror the command-center backend's wire contract exactly:
// every type here is the JSON shape of a pull endpoint response or a
// push-channel payload. Slots in the snapshot hold these types and are
// replaced wholesale on every write; nothing in this package carries a
// version number or timestamp of its own.
package model
