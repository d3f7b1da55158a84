package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/hoist/lift"
)

// TestGoldenTransforms verifies that known inputs produce expected
// serialized bytes and hashes. If the golden files don't exist, they
// are created (first run). This prevents accidental format drift:
// a change to the serialization must bump HashVersion and regenerate
// the golden files deliberately.
func TestGoldenTransforms(t *testing.T) {
	cases := []struct {
		name string
		root string
		body string
	}{
		{
			name: "plain_literal",
			root: "Gold",
			body: `h = _fn(int, (int x), { return x + 1; });`,
		},
		{
			name: "closure_two_captures",
			root: "Gold",
			body: `p = _cl(int, (void), (int x, int y), { return _env->x; });`,
		},
		{
			name: "nested_literal",
			root: "Gold",
			body: `a = _fn(int, (void), { b = _fn(int, (void), { return 2; }); return b(); });`,
		},
		{
			name: "variadic_params",
			root: "Gold",
			body: `h = _fn(void, (const char *fmt, ...), { log(fmt); });`,
		},
	}

	goldenDir := filepath.Join("testdata")
	if err := os.MkdirAll(goldenDir, 0o755); err != nil {
		t.Fatalf("create testdata dir: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := transform(t, tc.root, tc.body)
			defs, body := lift.Emit(res)
			data := serialize(res.Root, defs, body)
			h := sha256.Sum256(data)

			serializedHex := hex.EncodeToString(data)
			hashHex := hex.EncodeToString(h[:])

			goldenPath := filepath.Join(goldenDir, tc.name+".golden")
			expected, err := os.ReadFile(goldenPath)
			if err != nil {
				// First run: create golden file
				content := serializedHex + "\n" + hashHex + "\n"
				if writeErr := os.WriteFile(goldenPath, []byte(content), 0o644); writeErr != nil {
					t.Fatalf("write golden file: %v", writeErr)
				}
				t.Logf("created golden file: %s", goldenPath)
				return
			}

			lines := strings.Split(strings.TrimSpace(string(expected)), "\n")
			if len(lines) != 2 {
				t.Fatalf("golden file %s: expected 2 lines, got %d", goldenPath, len(lines))
			}

			if serializedHex != lines[0] {
				t.Errorf("serialized bytes mismatch:\n  got:  %s\n  want: %s", serializedHex, lines[0])
			}
			if hashHex != lines[1] {
				t.Errorf("hash mismatch:\n  got:  %s\n  want: %s", hashHex, lines[1])
			}
		})
	}
}
