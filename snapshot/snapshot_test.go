// Package snapshot_test compares the outputs of every sample program with
// golden files in testdata/golden/{spv,wgsl,ir}/.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir"
	"github.com/gogpu/tir/internal/samples"
	"github.com/gogpu/tir/spirv"
)

func TestSnapshots(t *testing.T) {
	opts := tir.DefaultOptions()
	opts.Targets = tir.TargetAll

	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			res, err := tir.Compile(context.Background(), s.Build(), opts)
			require.NoError(t, err, "diagnostics: %v", res.Diagnostics)

			t.Run("spv", func(t *testing.T) {
				text, err := spirv.Disassemble(res.SPIRV)
				require.NoError(t, err)
				compareGolden(t, filepath.Join("testdata", "golden", "spv", s.Name+".spvasm"), text)
			})

			t.Run("wgsl", func(t *testing.T) {
				compareGolden(t, filepath.Join("testdata", "golden", "wgsl", s.Name+".wgsl"), res.WGSL)
			})

			t.Run("ir", func(t *testing.T) {
				compareGolden(t, filepath.Join("testdata", "golden", "ir", s.Name+".ir"), res.IR)
			})
		})
	}
}

// compareGolden compares actual with the golden file at path. A missing
// golden file fails the test.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(actual), 0o644))
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s (run with UPDATE_GOLDEN=1 to create)", path)
	}
	require.NoError(t, err)

	// Git may check out \r\n on Windows.
	assert.Equal(t, strings.ReplaceAll(string(expected), "\r\n", "\n"), actual, "golden %s", path)
}

func TestEverySampleHasGoldens(t *testing.T) {
	for _, s := range samples.All() {
		for _, p := range []string{
			filepath.Join("testdata", "golden", "spv", s.Name+".spvasm"),
			filepath.Join("testdata", "golden", "wgsl", s.Name+".wgsl"),
			filepath.Join("testdata", "golden", "ir", s.Name+".ir"),
		} {
			_, err := os.Stat(p)
			assert.NoError(t, err, "sample %s", s.Name)
		}
	}
}
