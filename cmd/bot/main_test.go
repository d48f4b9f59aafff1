package main

import "testing"

func TestParsePos(t *testing.T) {
	p, err := parsePos("overworld:1,-2,3")
	if err != nil {
		t.Fatalf("parsePos: %v", err)
	}
	if p.Space != "OVERWORLD" || p.X != 1 || p.Y != -2 || p.Z != 3 {
		t.Fatalf("pos=%+v", p)
	}
	for _, bad := range []string{"", "1,2,3", "NETHER:1,2", "NETHER:a,2,3"} {
		if _, err := parsePos(bad); err == nil {
			t.Fatalf("parsePos(%q) accepted", bad)
		}
	}
}
