// Package config handles configuration loading for relay-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	llm:
//	  api_key: "${OPENAI_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	sessions:
//	  expiry: "10m"
//	automation:
//	  timeout: "15s"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Messaging platform:
//
//	platform:
//	  send_url: "https://platform.example.com/api/send"
//	  token: "${PLATFORM_TOKEN}"
//	  webhook_secret: "${PLATFORM_WEBHOOK_SECRET}"
//
// AI responder:
//
//	llm:
//	  api_key: "${OPENAI_API_KEY}"
//	  model: "gpt-4o-mini"
//
// Automation webhook:
//
//	automation:
//	  webhook_url: "https://automation.example.com/webhook/relay"
//	  timeout: "15s"
//
// Transcript store:
//
//	database:
//	  driver: "sqlite"            # sqlite, postgres, none
//	  path: "/var/lib/relay/relay.db"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "relay-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: true
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
