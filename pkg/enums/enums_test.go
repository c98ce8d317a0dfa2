package enums

import "testing"

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"user", "guide", "lead-guide", "admin"} {
		role, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !role.IsValid() || role.String() != raw {
			t.Fatalf("unexpected role %q", role)
		}
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if Role("ADMIN").IsValid() {
		t.Fatal("roles are case sensitive")
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty("medium"); err != nil || d != DifficultyMedium {
		t.Fatalf("unexpected %q %v", d, err)
	}
	if _, err := ParseDifficulty("extreme"); err == nil {
		t.Fatal("expected unknown difficulty to fail")
	}
}
