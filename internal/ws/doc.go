// Package ws provides the realtime session gateway for the whiteboard.
//
// The package implements:
//   - Client: one websocket connection with a buffered send channel
//   - Hub: the broadcast group for a single room
//   - HubManager: hubs keyed by room id
//   - Handler: upgrades connections and routes create-room, join-room,
//     draw and canvas-reset events into the room registry
//
// Draw and reset events are relayed to every room member except the sender.
// Late joiners are caught up with the room's cached canvas snapshot. Events
// from one connection are delivered to peers in the order they were sent;
// no ordering is guaranteed across senders.
package ws
