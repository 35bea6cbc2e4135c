package network

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncode_TileScenario(t *testing.T) {
	msg := Tile{X: 5, Y: 3, Tile: 4}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	wantLen := (TypeBits + 8 + 8 + 4 + 7) / 8
	if len(data) != wantLen {
		t.Fatalf("Expected %d bytes, got %d", wantLen, len(data))
	}
	// 0101 00000101 00000011 0100
	want := []byte{0x50, 0x50, 0x34}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("Expected bytes % x, got % x", want, data)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, msg) {
		t.Errorf("Expected %+v, got %+v", msg, decoded)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	messages := []Message{
		Error{Code: ErrorRoomFull},
		Init{
			ID: 7, MineCount: 999, Time: 12, Width: 100, Height: 60,
			TileType: 1, GuessLevel: 2, Gamemode: 1, HasStart: true,
			StartX: 99, StartY: 59, Started: true,
			Flags: []uint32{8191, 0, 42},
		},
		Init{ID: 1, Width: 9, Height: 9},
		User{ID: 3, Score: 200, Hue: 1023, Saturation: 100, Lightness: 50, Update: true, Username: "sweeper"},
		User{ID: 4},
		Disconnect{ID: 255},
		Cursor{X: 4095, Y: 1, ID: 9},
		Tile{X: 255, Y: 0, Tile: 15},
		Chord{X: 1, Y: 2, Tiles: []uint32{1, 2, 3, 4, 5, 6, 15}},
		Hole{ClickX: 3, ClickY: 4, StartX: 5, StartY: 6, Last: true, Directions: []uint32{0o12, 0o31, 0o02}},
		Hole{ClickX: 1, ClickY: 1, StartX: 1, StartY: 1},
		Board{Tiles: []uint32{9, 9, 0, 1, 10, 11, 8}},
		Flag{X: 10, Y: 20, ID: 30, ColorID: 31},
		Win{},
		Lose{ID: 2, Mines: []uint32{1, 0, 0, 1, 1, 0, 1, 0, 1, 1, 0, 0}},
		Reset{MineCount: 40, HasStart: true, StartX: 3, StartY: 4},
	}

	for _, msg := range messages {
		data, err := Encode(msg)
		if err != nil {
			t.Fatalf("Encode %s failed: %v", msg.Kind(), err)
		}
		if want := (Bits(msg) + 7) / 8; len(data) != want {
			t.Errorf("%s: expected %d bytes, got %d", msg.Kind(), want, len(data))
		}
		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode %s failed: %v", msg.Kind(), err)
		}
		if !reflect.DeepEqual(decoded, msg) {
			t.Errorf("%s round trip mismatch:\n want %+v\n  got %+v", msg.Kind(), msg, decoded)
		}
	}
}

func TestEncode_PointerMessage(t *testing.T) {
	data, err := Encode(&Disconnect{ID: 5})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != (Disconnect{ID: 5}) {
		t.Errorf("Unexpected message %+v", decoded)
	}
}

func TestEncode_FieldOverflow(t *testing.T) {
	if _, err := Encode(Tile{X: 256}); !errors.Is(err, ErrFieldOverflow) {
		t.Errorf("Expected ErrFieldOverflow, got %v", err)
	}
	if _, err := Encode(Board{Tiles: []uint32{16}}); !errors.Is(err, ErrFieldOverflow) {
		t.Errorf("Expected ErrFieldOverflow for array element, got %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrTruncated) {
		t.Errorf("Empty buffer: expected ErrTruncated, got %v", err)
	}

	// Tag 13 is not assigned.
	if _, err := Decode([]byte{0xD0}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}

	data, _ := Encode(Tile{X: 1, Y: 2, Tile: 3})
	if _, err := Decode(data[:2]); !errors.Is(err, ErrTruncated) {
		t.Errorf("Truncated TILE: expected ErrTruncated, got %v", err)
	}

	extra := append(append([]byte{}, data...), 0x00)
	if _, err := Decode(extra); !errors.Is(err, ErrMalformed) {
		t.Errorf("TILE with an extra byte: expected ErrMalformed, got %v", err)
	}

	win, _ := Encode(Win{})
	win[0] |= 0x01
	if _, err := Decode(win); !errors.Is(err, ErrMalformed) {
		t.Errorf("Non-zero padding: expected ErrMalformed, got %v", err)
	}

	// INIT elements are 13 bits wide: 9 stray bits cannot be padding.
	initData, _ := Encode(Init{ID: 1})
	initData = append(initData, 0x00, 0x00)
	if _, err := Decode(initData); !errors.Is(err, ErrMalformed) {
		t.Errorf("INIT with stray bits: expected ErrMalformed, got %v", err)
	}
}

func TestDecode_NarrowElementPadding(t *testing.T) {
	// 4 tag bits + 2*4 tile bits leave 4 padding bits that decode as one
	// extra zero tile.
	data, err := Encode(Board{Tiles: []uint32{9, 9}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	tiles := decoded.(Board).Tiles
	if len(tiles) != 3 || tiles[0] != 9 || tiles[1] != 9 || tiles[2] != 0 {
		t.Errorf("Expected [9 9 0], got %v", tiles)
	}

	// a full chord: 4 + 16 + 8*4 bits, so one phantom tile again
	chord := Chord{X: 3, Y: 4, Tiles: []uint32{1, 2, 3, 4, 5, 6, 7, 8}}
	data, err = Encode(chord)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err = Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got := decoded.(Chord)
	if got.X != 3 || got.Y != 4 || len(got.Tiles) != 9 || got.Tiles[8] != 0 {
		t.Errorf("Expected 8 tiles plus one zero, got %+v", got)
	}
	if !reflect.DeepEqual(got.Tiles[:8], chord.Tiles) {
		t.Errorf("Expected %v, got %v", chord.Tiles, got.Tiles[:8])
	}
}

func TestKind_String(t *testing.T) {
	if KindHole.String() != "HOLE" {
		t.Errorf("Expected HOLE, got %s", KindHole.String())
	}
	if Kind(99).String() != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN, got %s", Kind(99).String())
	}
	if 1<<TypeBits < int(kindCount) || 1<<(TypeBits-1) >= int(kindCount) {
		t.Errorf("TypeBits %d does not match %d kinds", TypeBits, kindCount)
	}
}
