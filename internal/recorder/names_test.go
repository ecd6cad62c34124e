package recorder_test

import (
	"fmt"
	"strings"
	"testing"

	"codeberg.org/mutker/acclogger/internal/recorder"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Log.csv", "My_Log.csv"},
		{"run", "run.csv"},
		{"", "log.csv"},
		{"///", "log.csv"},
		{"../../etc/passwd", "....etcpasswd.csv"},
		{"/abs/path.csv", "abspath.csv"},
		{"día 1", "da_1.csv"},
		{"a-b_c.9.csv", "a-b_c.9.csv"},
		{"data.txt", "data.txt.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, recorder.Sanitize(tt.in))
		})
	}
}

func TestSanitizeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.String().Draw(t, "input")
		out := recorder.Sanitize(in)

		if out == "" {
			t.Fatalf("empty result for %q", in)
		}
		if !strings.HasSuffix(out, recorder.Extension) {
			t.Fatalf("%q lacks extension", out)
		}
		for _, c := range out {
			ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
				c == '.' || c == '_' || c == '-'
			if !ok {
				t.Fatalf("%q contains %q", out, c)
			}
		}
		if again := recorder.Sanitize(out); again != out {
			t.Fatalf("not idempotent: %q -> %q", out, again)
		}
	})
}

func existsIn(set map[string]bool) func(string) bool {
	return func(name string) bool { return set[name] }
}

func TestPickUnique(t *testing.T) {
	taken := map[string]bool{}
	assert.Equal(t, "My_Log.csv", recorder.PickUnique(existsIn(taken), "My_Log.csv"))

	taken["My_Log.csv"] = true
	assert.Equal(t, "My_Log_001.csv", recorder.PickUnique(existsIn(taken), "My_Log.csv"))

	taken["My_Log_001.csv"] = true
	taken["My_Log_002.csv"] = true
	assert.Equal(t, "My_Log_003.csv", recorder.PickUnique(existsIn(taken), "My_Log.csv"))
}

func TestPickUniqueSplitsAtLastDot(t *testing.T) {
	taken := map[string]bool{"a.b.csv": true}
	assert.Equal(t, "a.b_001.csv", recorder.PickUnique(existsIn(taken), "a.b.csv"))
}

func TestPickUniqueOverflow(t *testing.T) {
	taken := map[string]bool{"log.csv": true}
	for i := 1; i <= 999; i++ {
		taken[fmt.Sprintf("log_%03d.csv", i)] = true
	}
	assert.Equal(t, recorder.OverflowName, recorder.PickUnique(existsIn(taken), "log.csv"))
}

func TestPickUniqueNeverReturnsExisting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		stem := rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "stem")
		name := stem + ".csv"

		taken := map[string]bool{}
		if rapid.Bool().Draw(t, "base_taken") {
			taken[name] = true
		}
		for _, n := range rapid.SliceOfN(rapid.IntRange(1, 999), 0, 200).Draw(t, "suffixes") {
			taken[fmt.Sprintf("%s_%03d.csv", stem, n)] = true
		}

		got := recorder.PickUnique(existsIn(taken), name)
		if taken[got] {
			t.Fatalf("returned existing name %q", got)
		}
		if !strings.HasPrefix(got, stem) || !strings.HasSuffix(got, ".csv") {
			t.Fatalf("unexpected shape %q", got)
		}
	})
}
