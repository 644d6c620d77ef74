package move

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, m := range All() {
		got, err := Decode(Encode(m))
		if err != nil {
			t.Fatalf("Decode(Encode(%v)) failed: %v", m, err)
		}
		if got != m {
			t.Errorf("round trip of %v returned %v", m, got)
		}
	}
}

func TestDecodeKnownCodes(t *testing.T) {
	if m, err := Decode("c"); err != nil || m != Cooperate {
		t.Errorf("Decode(c) = %v, %v", m, err)
	}
	if m, err := Decode("d"); err != nil || m != Defect {
		t.Errorf("Decode(d) = %v, %v", m, err)
	}
}

func TestDecodeRejectsEverythingElse(t *testing.T) {
	for _, raw := range []string{"", "C", "D", " c", "c\n", "cooperate", "x", "cd"} {
		_, err := Decode(raw)
		if err == nil {
			t.Errorf("Decode(%q) should fail", raw)
			continue
		}
		var invalid *InvalidMoveError
		if !errors.As(err, &invalid) {
			t.Errorf("Decode(%q) returned %T, want *InvalidMoveError", raw, err)
			continue
		}
		if invalid.Raw != raw {
			t.Errorf("InvalidMoveError.Raw = %q, want %q", invalid.Raw, raw)
		}
		if !errors.Is(err, ErrInvalidMove) {
			t.Errorf("Decode(%q) error should match ErrInvalidMove", raw)
		}
	}
}

func TestMoveJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Move{"a": Cooperate, "b": Defect})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"a":"c","b":"d"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var decoded struct{ M Move }
	if err := json.Unmarshal([]byte(`{"M":"d"}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.M != Defect {
		t.Errorf("expected defect, got %v", decoded.M)
	}
	if err := json.Unmarshal([]byte(`{"M":"q"}`), &decoded); err == nil {
		t.Error("expected error for invalid move in JSON")
	}
}

func TestMarshalRejectsOutOfRange(t *testing.T) {
	if _, err := Move(7).MarshalText(); err == nil {
		t.Error("expected error marshaling out-of-range move")
	}
}

func TestEncodePanicsOnUndefinedMove(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Encode(Move(7)) should panic")
		}
	}()
	Encode(Move(7))
}

func TestStringOfUndefinedMove(t *testing.T) {
	if got := Move(7).String(); got != "Move(7)" {
		t.Errorf("String() = %q, want Move(7)", got)
	}
}
