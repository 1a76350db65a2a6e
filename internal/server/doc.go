// Package server exposes the relay over HTTP: the platform webhook with
// signature verification and redelivery dedupe, health probes, and an
// optional developer test chat page. Listeners are plain TCP or a
// tailscale tsnet node with optional Funnel for public HTTPS.
package server
