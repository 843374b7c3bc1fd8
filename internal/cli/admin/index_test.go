package admin

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndexArtifact(t *testing.T, dim, count int) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("SATVEC01")
	binary.Write(&buf, binary.LittleEndian, uint64(dim))
	binary.Write(&buf, binary.LittleEndian, uint64(count))
	for i := 0; i < dim*count; i++ {
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(0.5))
	}

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func newInspectCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd
}

func TestIndexInspect(t *testing.T) {
	path := writeIndexArtifact(t, 4, 3)

	var out bytes.Buffer
	err := runIndexInspect(newInspectCmd(&out), path, "")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Magic:      SATVEC01")
	assert.Contains(t, out.String(), "Dimension:  4")
	assert.Contains(t, out.String(), "Vectors:    3")
	assert.NotContains(t, out.String(), "WARNING")
}

func TestIndexInspect_WithMetadata(t *testing.T) {
	path := writeIndexArtifact(t, 4, 2)
	metaPath := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(metaPath, []byte(`[{"id":0},{"id":1}]`), 0o644))

	var out bytes.Buffer
	err := runIndexInspect(newInspectCmd(&out), path, metaPath)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Chunks:     2")
	assert.NotContains(t, out.String(), "WARNING")
}

func TestIndexInspect_MetadataCountMismatch(t *testing.T) {
	path := writeIndexArtifact(t, 4, 2)
	metaPath := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(metaPath, []byte(`[{"id":0}]`), 0o644))

	var out bytes.Buffer
	err := runIndexInspect(newInspectCmd(&out), path, metaPath)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "WARNING: chunk count does not match vector count")
}

func TestIndexInspect_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte("SATVEC"), 0o644))

	var out bytes.Buffer
	err := runIndexInspect(newInspectCmd(&out), path, "")

	assert.Error(t, err)
}
