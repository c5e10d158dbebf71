// Package state keeps per-chat conversation sessions for Telegram flows.
// Sessions live in memory and hold only the current step, the collected
// field values and the scratch paths created for the submission.
package state
