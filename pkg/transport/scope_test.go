package transport

import "testing"

func TestMapScopeExposeAndLookup(t *testing.T) {
	scope := NewMapScope()

	if err := scope.Expose("panelAPI", "bridge"); err != nil {
		t.Fatalf("Expose error: %v", err)
	}

	value, ok := scope.Lookup("panelAPI")
	if !ok {
		t.Fatal("expected lookup to find exposed key")
	}
	if value != "bridge" {
		t.Fatalf("value = %v, want %q", value, "bridge")
	}
}

func TestMapScopeLookupMissingKey(t *testing.T) {
	scope := NewMapScope()

	if _, ok := scope.Lookup("absent"); ok {
		t.Fatal("expected lookup miss for unexposed key")
	}
}

func TestMapScopeRejectsDuplicateKey(t *testing.T) {
	scope := NewMapScope()

	if err := scope.Expose("panelAPI", "first"); err != nil {
		t.Fatalf("Expose error: %v", err)
	}
	if err := scope.Expose("panelAPI", "second"); err == nil {
		t.Fatal("expected error for duplicate key")
	}

	value, ok := scope.Lookup("panelAPI")
	if !ok || value != "first" {
		t.Fatalf("value = %v, want original %q", value, "first")
	}
}

func TestMapScopeRejectsEmptyKeyAndNilAPI(t *testing.T) {
	scope := NewMapScope()

	if err := scope.Expose("  ", "api"); err == nil {
		t.Fatal("expected error for blank key")
	}
	if err := scope.Expose("panelAPI", nil); err == nil {
		t.Fatal("expected error for nil api object")
	}
}
