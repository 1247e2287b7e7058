package beatmap

import (
	"strings"
	"testing"
)

func TestRawDefaults(t *testing.T) {
	raw, err := DecodeRaw(strings.NewReader(`{
		"small": 2.9, "text": " 3 ", "bad": "x", "huge": 1e20, "tiny": -1e20,
		"list": [{"a": 1}, 5, {"a": 2}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	ints := map[string]int{
		"small":   2,
		"text":    3,
		"bad":     -1,
		"huge":    -1,
		"tiny":    -1,
		"missing": -1,
		"list":    -1,
	}
	for key, want := range ints {
		if got := raw.Int(key, -1); got != want {
			t.Fatalf("Int(%q) = %d, want %d", key, got, want)
		}
	}
	if got := raw.Float("huge", 0); got != 1e20 {
		t.Fatalf("Float(huge) = %g", got)
	}
	list, ok := raw.List("list")
	if !ok || len(list) != 2 || list[1].Int("a", 0) != 2 {
		t.Fatalf("List = %v, %v", list, ok)
	}
}
