// Package protocol classifies the binary messages exchanged through a
// relay room.
//
// The relay never interprets message payloads. Every frame carries at most
// two classification bytes up front; everything after them is opaque and
// forwarded verbatim.
//
// # Wire Format
//
//	byte 0: message class   (0 = Sync, 1 = Awareness)
//	if class == Sync:
//	  byte 1: sync subtype   (0 = Step1, 1 = Step2, 2 = Update)
//	  bytes 2..: opaque payload
//	if class == Awareness:
//	  bytes 1..: opaque payload
//
// # Routing
//
// Classification yields a Route deciding whether the frame is recorded in
// the room's replay history and whether it is broadcast to the other
// members of the room:
//
//   - Sync/Step1: broadcast, not stored. A state-vector probe is a request
//     the relay cannot answer itself, so it is forwarded like any other
//     sync traffic, but replaying a probe to a late joiner would be
//     meaningless.
//   - Sync/Step2 and Sync/Update: stored and broadcast. These carry
//     document state and are what a late joiner needs to catch up.
//   - Awareness: broadcast, not stored. Presence data expires too fast to
//     be worth replaying.
//   - Anything else: dropped without closing the connection, so an unknown
//     frame from a newer client cannot take down a shared room.
package protocol
