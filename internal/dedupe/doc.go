// Package dedupe provides webhook redelivery suppression using a
// time-based cache keyed by the platform's message delivery IDs.
package dedupe
