// Package dedupe tracks processed carrier delivery attempts so webhook
// retries of the same message are acknowledged without re-running handlers.
package dedupe
