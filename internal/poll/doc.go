// Package poll runs the dashboard pull schedule: one fetch at start,
// then one per interval. Results land in the snapshot; failures record
// a last-error and wait for the next tick. Epoch tagging keeps a pull
// that outlived its scheduler from overwriting fresher data.
package poll
