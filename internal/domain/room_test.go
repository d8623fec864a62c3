package domain

import "testing"

func TestComposeRoomID(t *testing.T) {
	if got := ComposeRoomID("lotA", "cam1"); got != "lotA__cam1" {
		t.Fatalf("ComposeRoomID = %q, want lotA__cam1", got)
	}
}

func TestRoleValid(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleHost:   true,
		RoleViewer: true,
		"admin":    false,
		"":         false,
	} {
		if got := role.Valid(); got != want {
			t.Errorf("Role(%q).Valid() = %v, want %v", role, got, want)
		}
	}
}
