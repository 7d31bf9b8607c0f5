// Package config handles configuration loading for the chat client.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults for local development.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  token: "${NEUROTRACK_CHAT_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	chat:
//	  typing_expiry: "4s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server endpoints:
//
//	server:
//	  api_base: "http://localhost:5000"                 # REST base URL
//	  ws_url: "ws://localhost:5000/api/chat/push"       # push channel
//	  token: "${NEUROTRACK_CHAT_TOKEN}"                 # optional bearer token
//
// Engine timing:
//
//	chat:
//	  typing_expiry: "4s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/neurotrack/chat.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
