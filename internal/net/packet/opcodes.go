package packet

import "fmt"

// ProtocolVersion is sent by clients in C_HELLO and must match.
const ProtocolVersion = 1

// Client -> server.
const (
	C_OPCODE_HELLO byte = 0x01 // [D version][S password]
	C_OPCODE_JOIN  byte = 0x02 // [D char id][S name][D map][F x][F y][F hp][F max hp]
	C_OPCODE_MOVE  byte = 0x03 // [F x][F y]
	C_OPCODE_LEAVE byte = 0x04
	C_OPCODE_TRACE byte = 0x05 // [S spawn key][C on]
	C_OPCODE_QUIT  byte = 0x06
)

// Server -> client.
const (
	S_OPCODE_WELCOME   byte = 0x81 // [S server name][D tick ms]
	S_OPCODE_REJECT    byte = 0x82 // [S reason]
	S_OPCODE_JOINED    byte = 0x83 // [Q entity id][D char id]
	S_OPCODE_ATTRS     byte = 0x84 // [Q entity][H n] n * [S key][C kind][value]
	S_OPCODE_ABILITY   byte = 0x85 // [Q owner][S ability][C stage][Q target]
	S_OPCODE_CANCEL    byte = 0x86 // [Q owner][S ability]
	S_OPCODE_SOUND     byte = 0x87 // [D map][F x][F y][S sound][F volume][F range][D delay ms]
	S_OPCODE_ANIMATION byte = 0x88 // [Q entity][S animation]
	S_OPCODE_PARTICLES byte = 0x89 // [D map][F x][F y][S kind][H count]
	S_OPCODE_DAMAGE    byte = 0x8A // [Q target][Q source][F amount][S type][C killed]
	S_OPCODE_REMOVE    byte = 0x8B // [Q entity][S reason]
)

// Attribute value kinds in S_ATTRS. KindRemoved carries no value.
const (
	AttrRemoved byte = 0
	AttrBool    byte = 'b'
	AttrLong    byte = 'l'
	AttrDouble  byte = 'd'
	AttrString  byte = 's'
)

var opcodeNames = map[byte]string{
	C_OPCODE_HELLO: "C_HELLO",
	C_OPCODE_JOIN:  "C_JOIN",
	C_OPCODE_MOVE:  "C_MOVE",
	C_OPCODE_LEAVE: "C_LEAVE",
	C_OPCODE_TRACE: "C_TRACE",
	C_OPCODE_QUIT:  "C_QUIT",

	S_OPCODE_WELCOME:   "S_WELCOME",
	S_OPCODE_REJECT:    "S_REJECT",
	S_OPCODE_JOINED:    "S_JOINED",
	S_OPCODE_ATTRS:     "S_ATTRS",
	S_OPCODE_ABILITY:   "S_ABILITY",
	S_OPCODE_CANCEL:    "S_CANCEL",
	S_OPCODE_SOUND:     "S_SOUND",
	S_OPCODE_ANIMATION: "S_ANIMATION",
	S_OPCODE_PARTICLES: "S_PARTICLES",
	S_OPCODE_DAMAGE:    "S_DAMAGE",
	S_OPCODE_REMOVE:    "S_REMOVE",
}

// OpcodeName returns the log name of op, or its hex value.
func OpcodeName(op byte) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", op)
}
