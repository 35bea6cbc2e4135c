package network

// Kind is the message type tag. The tag order is part of the wire contract.
type Kind uint8

const (
	KindError Kind = iota
	KindInit
	KindUser
	KindDisconnect
	KindCursor
	KindTile
	KindChord
	KindHole
	KindBoard
	KindFlag
	KindWin
	KindLose
	KindReset

	kindCount
)

// TypeBits is the width of the tag written before every message:
// ceil(log2(kindCount)).
const TypeBits = 4

var kindNames = [...]string{
	KindError:      "ERROR",
	KindInit:       "INIT",
	KindUser:       "USER",
	KindDisconnect: "DISCONNECT",
	KindCursor:     "CURSOR",
	KindTile:       "TILE",
	KindChord:      "CHORD",
	KindHole:       "HOLE",
	KindBoard:      "BOARD",
	KindFlag:       "FLAG",
	KindWin:        "WIN",
	KindLose:       "LOSE",
	KindReset:      "RESET",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// ErrorCode is carried by ERROR messages.
type ErrorCode uint32

const (
	ErrorNoRoom ErrorCode = iota
	ErrorBadPassword
	ErrorRoomFull
)

// Message is implemented by one struct per Kind. Struct fields carry a
// `bits:"N"` tag: unsigned integers and bools are fixed width, a []uint32
// field is an array of N-bit elements and a string is a byte string. Arrays
// and strings have implicit length and must be the last field.
type Message interface {
	Kind() Kind
}

type Error struct {
	Code ErrorCode `bits:"2"`
}

type Init struct {
	ID         uint32   `bits:"8"`
	MineCount  uint32   `bits:"10"`
	Time       uint32   `bits:"8"`
	Width      uint32   `bits:"7"`
	Height     uint32   `bits:"7"`
	TileType   uint32   `bits:"2"`
	GuessLevel uint32   `bits:"2"`
	Gamemode   uint32   `bits:"1"`
	HasStart   bool     `bits:"1"`
	StartX     uint32   `bits:"7"`
	StartY     uint32   `bits:"7"`
	Started    bool     `bits:"1"`
	Flags      []uint32 `bits:"13"`
}

type User struct {
	ID         uint32 `bits:"8"`
	Score      uint32 `bits:"8"`
	Hue        uint32 `bits:"10"`
	Saturation uint32 `bits:"7"`
	Lightness  uint32 `bits:"7"`
	Update     bool   `bits:"1"`
	Username   string
}

type Disconnect struct {
	ID uint32 `bits:"8"`
}

type Cursor struct {
	X  uint32 `bits:"12"`
	Y  uint32 `bits:"12"`
	ID uint32 `bits:"8"`
}

type Tile struct {
	X    uint32 `bits:"8"`
	Y    uint32 `bits:"8"`
	Tile uint32 `bits:"4"`
}

type Chord struct {
	X     uint32   `bits:"8"`
	Y     uint32   `bits:"8"`
	Tiles []uint32 `bits:"4"`
}

// Hole carries one border chain; Directions holds 6-bit units of
// direction<<3 | count.
type Hole struct {
	ClickX     uint32   `bits:"8"`
	ClickY     uint32   `bits:"8"`
	StartX     uint32   `bits:"8"`
	StartY     uint32   `bits:"8"`
	Last       bool     `bits:"1"`
	Directions []uint32 `bits:"6"`
}

type Board struct {
	Tiles []uint32 `bits:"4"`
}

type Flag struct {
	X       uint32 `bits:"8"`
	Y       uint32 `bits:"8"`
	ID      uint32 `bits:"8"`
	ColorID uint32 `bits:"5"`
}

type Win struct{}

type Lose struct {
	ID    uint32   `bits:"8"`
	Mines []uint32 `bits:"1"`
}

type Reset struct {
	MineCount uint32 `bits:"10"`
	HasStart  bool   `bits:"1"`
	StartX    uint32 `bits:"7"`
	StartY    uint32 `bits:"7"`
}

func (Error) Kind() Kind      { return KindError }
func (Init) Kind() Kind       { return KindInit }
func (User) Kind() Kind       { return KindUser }
func (Disconnect) Kind() Kind { return KindDisconnect }
func (Cursor) Kind() Kind     { return KindCursor }
func (Tile) Kind() Kind       { return KindTile }
func (Chord) Kind() Kind      { return KindChord }
func (Hole) Kind() Kind       { return KindHole }
func (Board) Kind() Kind      { return KindBoard }
func (Flag) Kind() Kind       { return KindFlag }
func (Win) Kind() Kind        { return KindWin }
func (Lose) Kind() Kind       { return KindLose }
func (Reset) Kind() Kind      { return KindReset }

func init() {
	register(Error{})
	register(Init{})
	register(User{})
	register(Disconnect{})
	register(Cursor{})
	register(Tile{})
	register(Chord{})
	register(Hole{})
	register(Board{})
	register(Flag{})
	register(Win{})
	register(Lose{})
	register(Reset{})
}
