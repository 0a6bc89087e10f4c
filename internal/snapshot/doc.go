// Package snapshot holds the console's shared mutable state.
//
// One named slot per data domain, one getter and one setter per slot.
// Setters replace the slot's value wholesale; there is no field-level
// merge, no version numbers, and no write ordering across producers.
// Whichever producer writes last wins. That is the documented contract
// of this layer, not an accident.
package snapshot
