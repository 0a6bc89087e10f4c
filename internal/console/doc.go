// Package console composes the sync layer: one REST client, one push
// channel, one poll schedule, and one job tracker, all writing into a
// shared snapshot. The Service is the injection point the UI and the
// commands build on.
package console
