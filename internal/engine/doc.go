// Package engine is the sync coordinator of the conversation core: the one
// component that mutates the message store and participant directory.
//
// # Mutation model
//
// All mutation entry points (Send, ApplyEvent, Activate, Deactivate,
// LoadDirectory, LoadHistory) serialize on a single mutex and run to
// completion, so no caller ever observes a partially-applied mutation. Every
// log change and its matching directory summary patch happen under the same
// lock acquisition.
//
// The transport call inside Send is the only suspension point. It runs
// outside the lock, so other sends and inbound events proceed while a send is
// in flight; the in-flight message is visible with DeliveryPending until the
// transport resolves it to sent or failed.
//
// # Outbound path
//
//	provisionalID, err := eng.Send(ctx, participantID, body)
//
// Record first, then act: the pending message is appended before the
// transport is involved, so the UI shows it immediately and a transport
// failure leaves a visible failed record for retry. On success the
// provisional record is replaced in place by the server-confirmed message,
// keeping the same log slot and sequence, so render identity never jumps.
//
// # Inbound path
//
//	err := eng.ApplyEvent(ev)
//
// Events are applied strictly in arrival order per participant. Duplicate
// message ids are absorbed silently; a read receipt for a message that has
// not arrived yet is a no-op. A message arriving for the active conversation
// is marked read immediately instead of accruing unread.
//
// # Render boundary
//
// The engine pushes no views. Subscribers receive coalescing change ticks
// from the Notifier and re-pull projections from the views package.
package engine
