// Package ingest is the inbound webhook boundary.
//
// # Flow
//
// For each POST /sms-handler event:
//
//  1. Validate the shared webhook secret (when configured).
//  2. Parse the payload, tolerating carrier field aliases.
//  3. Drop duplicate delivery attempts by carrier message SID.
//  4. Record the inbound event in the message log.
//  5. Run the conversation engine and apply its session transition.
//  6. Attach the reply to the log entry and hand it to the delivery gateway.
//
// The boundary owns the message log and the delivery gateway; the engine
// never touches either. Side-effect failures surface as HTTP 500 with no
// reply sent, so the carrier's retry can re-drive the turn. Delivery
// failures after a computed reply are logged and acknowledged.
package ingest
