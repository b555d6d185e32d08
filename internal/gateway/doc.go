// Package gateway abstracts outbound SMS delivery behind a single
// Send(recipient, text) contract.
//
// Two interchangeable backends exist: the Twilio Messages API and a generic
// JSON webhook-out for aggregators. Delivery is at-least-once; retry policy,
// if any, belongs to the backend, not the core.
package gateway
