// Package store holds the conversation engine's owned state: the per-participant
// message logs and the participant directory.
//
// # Ownership
//
// The MessageStore exclusively owns message identity and ordering. A log is an
// append-only sequence; messages are never deleted, and only two fields ever
// change after insertion (DeliveryState and ReadAt). Order is ascending
// (CreatedAt, Seq), where Seq is a per-log insertion sequence assigned
// atomically on append so identical timestamps still yield a deterministic
// total order.
//
// The Directory owns the participant records plus their denormalized summary
// (LastMessageID, UnreadCount, presence). The summary mirrors the log and must
// never drift from it: any code path that mutates a log is responsible for
// applying a matching SummaryPatch in the same operation. The engine package
// is the only writer that does this.
//
// # Reconciliation
//
// Optimistic outgoing messages enter the log under a provisional id with
// DeliveryPending. Replace swaps in the server-confirmed record in the same
// log slot, preserving the sequence number, so a render key bound to the slot
// never jumps.
package store
