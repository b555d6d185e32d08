// Package config handles configuration loading for shortline.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults. Collaborators never
// read the environment directly; everything flows through the Config struct
// built once at startup.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	gateway:
//	  twilio:
//	    auth_token: "${TWILIO_AUTH_TOKEN}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  ttl: "1h"
//	dedupe:
//	  ttl: "10m"
//
// # Configuration Sections
//
// Server and database:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/shortline/shortline.db"
//
// Outbound delivery (one of two providers):
//
//	gateway:
//	  provider: "twilio"          # or "webhook"
//	  twilio:
//	    account_sid: "${TWILIO_ACCOUNT_SID}"
//	    auth_token: "${TWILIO_AUTH_TOKEN}"
//	    from: "+15005550006"
//	  outbound:
//	    url: "https://aggregator.example.com/out"
//	    api_key: "${GATEWAY_API_KEY}"
//
// Inbound webhook validation (empty secret disables it):
//
//	webhook:
//	  secret: "${WEBHOOK_SECRET}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
