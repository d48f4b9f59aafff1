package grid

import "testing"

func TestContainerIDRoundTrip(t *testing.T) {
	id := ContainerID("CHEST", At("OVERWORLD", 12, 0, -9))
	if id != "CHEST@OVERWORLD:12,0,-9" {
		t.Fatalf("ContainerID=%q", id)
	}
	kind, p, ok := ParseContainerID(id)
	if !ok {
		t.Fatalf("ParseContainerID failed for %q", id)
	}
	if kind != "CHEST" || p != At("OVERWORLD", 12, 0, -9) {
		t.Fatalf("unexpected parse result: kind=%q pos=%v", kind, p)
	}
}

func TestParseContainerIDRejectsInvalid(t *testing.T) {
	tests := []string{
		"",
		"CHEST",
		"@W:1,2,3",
		"CHEST@1,2,3",
		"CHEST@:1,2,3",
		"CHEST@W:1,2",
		"CHEST@W:a,2,3",
	}
	for _, id := range tests {
		if _, _, ok := ParseContainerID(id); ok {
			t.Fatalf("expected parse failure for %q", id)
		}
	}
}
