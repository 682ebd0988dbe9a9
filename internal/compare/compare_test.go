package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgconform/internal/domain"
)

type artifacts struct {
	produced, expected, diagnostic string
}

func setup(t *testing.T, produced, expected []byte) artifacts {
	t.Helper()
	dir := t.TempDir()
	a := artifacts{
		produced:   filepath.Join(dir, "service-out.png"),
		expected:   filepath.Join(dir, "rotate_180.out"),
		diagnostic: filepath.Join(dir, "rotate_180.got"),
	}
	if produced != nil {
		require.NoError(t, os.WriteFile(a.produced, produced, 0o644))
	}
	if expected != nil {
		require.NoError(t, os.WriteFile(a.expected, expected, 0o644))
	}
	return a
}

func TestCompare_IdenticalBytesPass(t *testing.T) {
	for _, content := range [][]byte{{}, []byte("\x89PNG\r\n\x1a\n"), make([]byte, 4096)} {
		a := setup(t, content, content)

		v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

		assert.True(t, v.Passed())
		assert.Empty(t, v.Reason)
		assert.NoFileExists(t, a.diagnostic)
	}
}

func TestCompare_MismatchWritesDiagnostic(t *testing.T) {
	produced := []byte("GIF89a-rotated-wrong")
	a := setup(t, produced, []byte("GIF89a-rotated-right"))

	v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

	require.False(t, v.Passed())
	assert.ErrorIs(t, v.Err, domain.ErrArtifactMismatch)
	assert.Contains(t, v.Reason, "mismatch")
	assert.Equal(t, a.diagnostic, v.DiagnosticPath)

	var mm *domain.ArtifactMismatchError
	require.ErrorAs(t, v.Err, &mm)
	assert.Equal(t, 15, mm.Offset)

	saved, err := os.ReadFile(a.diagnostic)
	require.NoError(t, err)
	assert.Equal(t, produced, saved)
}

func TestCompare_ZeroByteOutput(t *testing.T) {
	a := setup(t, []byte{}, []byte("golden"))

	v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

	require.False(t, v.Passed())
	assert.Contains(t, v.Reason, "mismatch")
	info, err := os.Stat(a.diagnostic)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestCompare_PrefixIsNotAMatch(t *testing.T) {
	a := setup(t, []byte("abc"), []byte("abcd"))

	v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

	require.False(t, v.Passed())
	var mm *domain.ArtifactMismatchError
	require.ErrorAs(t, v.Err, &mm)
	assert.Equal(t, 3, mm.Offset)
	assert.Equal(t, 3, mm.ProducedSize)
	assert.Equal(t, 4, mm.ExpectedSize)
}

func TestCompare_MissingExpected(t *testing.T) {
	a := setup(t, []byte("output"), nil)

	v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

	require.False(t, v.Passed())
	assert.ErrorIs(t, v.Err, domain.ErrMissingExpected)
	assert.Contains(t, v.Reason, "no output file for test")
}

func TestCompare_UnreadableProduced(t *testing.T) {
	a := setup(t, nil, []byte("golden"))

	v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

	require.False(t, v.Passed())
	assert.ErrorIs(t, v.Err, domain.ErrUnreadableOutput)
	assert.NoFileExists(t, a.diagnostic)
}

func TestCompare_DiagnosticWriteFailureKeepsVerdict(t *testing.T) {
	a := setup(t, []byte("a"), []byte("b"))
	badDiag := filepath.Join(filepath.Dir(a.diagnostic), "missing-dir", "rotate_180.got")

	v := NewComparator().Compare(a.produced, a.expected, badDiag)

	require.False(t, v.Passed())
	assert.ErrorIs(t, v.Err, domain.ErrArtifactMismatch)
	assert.Empty(t, v.DiagnosticPath)
	assert.Contains(t, v.Reason, "could not save rotate_180.got")
}

func TestCompare_PassRemovesStaleDiagnostic(t *testing.T) {
	a := setup(t, []byte("same"), []byte("same"))
	require.NoError(t, os.WriteFile(a.diagnostic, []byte("old"), 0o644))

	v := NewComparator().Compare(a.produced, a.expected, a.diagnostic)

	assert.True(t, v.Passed())
	assert.NoFileExists(t, a.diagnostic)
}

func TestCompare_UpdateGolden(t *testing.T) {
	a := setup(t, []byte("new"), []byte("old"))

	v := NewComparator(WithUpdateGolden(true)).Compare(a.produced, a.expected, a.diagnostic)

	require.False(t, v.Passed())
	assert.Contains(t, v.Reason, "golden updated")
	golden, err := os.ReadFile(a.expected)
	require.NoError(t, err)
	assert.Equal(t, "new", string(golden))

	// The next comparison passes
	assert.True(t, NewComparator().Compare(a.produced, a.expected, a.diagnostic).Passed())
}
