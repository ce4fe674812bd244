// Package protocol implements the topology synchronization wire format.
//
// Every frame, in both directions, is a JSON array of exactly two elements:
//
//	["<message_type>", { ...message body... }]
//
// Client to server messages are DeviceCreate, DeviceMove and MultipleMessage.
// Server to client frames are Snapshot (sent once when a session opens),
// Error, Ack and re-encoded mutations relayed from other sessions.
//
// Decode turns one text frame into a typed Message. Decoding happens once, at
// the edge; the mutation layer dispatches on the concrete Go type and never
// looks at the raw tag again. Nested MultipleMessage entries that fail to
// decode are kept in place as *Undecodable so a batch can apply the entries in
// front of them before it stops.
//
// Coordinates are accepted as JSON numbers or numeric strings ("10", " 2.5 ")
// and always re-encoded as numbers.
package protocol
