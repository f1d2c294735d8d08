package arcanet

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNodeChildPath(t *testing.T) {
	root := Void("gametop")
	data := Void("data")
	root.AddChild(data)
	player := Void("player")
	data.AddChild(player)
	player.AddChild(String("name", "ALICE"))
	player.AddChild(S32("jid", 12345678))

	if got := root.ChildStr("data/player/name"); got != "ALICE" {
		t.Fatalf("expected ALICE got %q", got)
	}
	if got := root.ChildInt("data/player/jid"); got != 12345678 {
		t.Fatalf("expected 12345678 got %d", got)
	}
}

func TestNodeMissingPathSentinel(t *testing.T) {
	root := Void("gametop")

	missing := root.Child("data/player/name")
	if missing.Exists() {
		t.Fatalf("missing path should yield sentinel")
	}
	if missing.Int() != 0 || missing.StringValue() != "" || missing.BoolValue() {
		t.Fatalf("sentinel should read zero values")
	}
}

func TestArrayLengthValidation(t *testing.T) {
	if _, err := Array("secret_list", NodeS32, 4, []int64{1, 2}); !errors.Is(err, ErrMalformedNode) {
		t.Fatalf("expected ErrMalformedNode, got %v", err)
	}
	n, err := Array("secret_list", NodeS32, 2, []int64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ArrayLen != 2 {
		t.Fatalf("expected declared length 2, got %d", n.ArrayLen)
	}
}

func TestNodeJSONRoundTrip(t *testing.T) {
	root := Void("lobby")
	root.SetAttribute("status", "0")
	data := Void("data")
	root.AddChild(data)
	data.AddChild(S64("roomid", 42))
	data.AddChild(Bool("host", true))
	data.AddChild(Bytes("ghost", []byte{1, 2, 3}))
	data.AddChild(U8Array("ga", []int64{192, 168, 0, 1}))

	encoded, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded := &Node{}
	if err := json.Unmarshal(encoded, decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Name != "lobby" || decoded.Attribute("status") != "0" {
		t.Fatalf("root mismatch: %+v", decoded)
	}
	if got := decoded.ChildInt("data/roomid"); got != 42 {
		t.Fatalf("expected roomid 42 got %d", got)
	}
	if !decoded.ChildBool("data/host") {
		t.Fatalf("expected host true")
	}
	if got := decoded.ChildBytes("data/ghost"); len(got) != 3 || got[0] != 1 {
		t.Fatalf("ghost bytes mismatch: %v", got)
	}
	ga := decoded.ChildIntArray("data/ga")
	if len(ga) != 4 || ga[0] != 192 || ga[3] != 1 {
		t.Fatalf("ga array mismatch: %v", ga)
	}
}

func TestNodeChildOrderPreserved(t *testing.T) {
	root := Void("player")
	for _, name := range []string{"info", "last", "item", "news"} {
		root.AddChild(Void(name))
	}

	encoded, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	decoded := &Node{}
	if err := json.Unmarshal(encoded, decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := []string{"info", "last", "item", "news"}
	if len(decoded.Children) != len(want) {
		t.Fatalf("expected %d children got %d", len(want), len(decoded.Children))
	}
	for i, name := range want {
		if decoded.Children[i].Name != name {
			t.Fatalf("child %d: expected %s got %s", i, name, decoded.Children[i].Name)
		}
	}
}

func TestParseModel(t *testing.T) {
	model, err := ParseModel("L44:J:A:A:2017090600")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if model.GameCode != "L44" || model.Version != 2017090600 {
		t.Fatalf("unexpected model: %+v", model)
	}

	if _, err := ParseModel("bogus"); err == nil {
		t.Fatalf("expected parse failure")
	}

	old, err := ParseModel("KDM:A:A:A")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if old.Version != -1 {
		t.Fatalf("expected -1 version for dateless model, got %d", old.Version)
	}
}
