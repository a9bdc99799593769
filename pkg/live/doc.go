// Package live pushes the rendered board to browsers over WebSocket.
//
// A Hub holds the connected clients. Every call to Notify (typically from a
// ui render hook) schedules one broadcast; notifications that arrive while a
// broadcast is pending are coalesced, and the broadcast always renders the
// latest view. A new client receives the current view as soon as it
// connects.
//
// Clients may send events back. Each text frame is decoded as an Event and
// handed to the hub's event handler:
//
//	{"post": 1, "action": "submit", "text": "hello"}
//	{"post": 1, "action": "delete"}
package live
