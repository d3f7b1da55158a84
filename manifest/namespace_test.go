package manifest

import "testing"

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"events", "Events"},
		{"my-app", "MyApp"},
		{"event_loop", "EventLoop"},
		{"myApp", "MyApp"},
		{"UPPER", "Upper"},
		{"a", "A"},
		{"", ""},
		{"already-PascalCase", "AlreadyPascalCase"},
		{"foo-bar-baz", "FooBarBaz"},
		{"_leading", "Leading"},
	}
	for _, tt := range tests {
		if got := ToPascalCase(tt.input); got != tt.want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsReservedRoot(t *testing.T) {
	reserved := []string{"static", "int", "void", "main", "errno", "", "9abc", "a-b", "a b", "Röt"}
	for _, name := range reserved {
		if !IsReservedRoot(name) {
			t.Errorf("IsReservedRoot(%q) = false, want true", name)
		}
	}

	usable := []string{"Evt", "MyApp", "_private", "App2", "x"}
	for _, name := range usable {
		if IsReservedRoot(name) {
			t.Errorf("IsReservedRoot(%q) = true, want false", name)
		}
	}
}
