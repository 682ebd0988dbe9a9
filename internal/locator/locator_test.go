package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		scheme Scheme
		want   string
	}{
		{name: "file scheme", path: "/root/test_images/foo.png", scheme: File, want: "file:///root/test_images/foo.png"},
		{name: "path scheme", path: "/root/test_files/foo.png", scheme: Path, want: "path:/root/test_files/foo.png"},
		{name: "file scheme escapes spaces", path: "/root/my images/foo.png", scheme: File, want: "file:///root/my%20images/foo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.path, tt.scheme)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_RejectsRelativePath(t *testing.T) {
	_, err := Encode("foo.png", File)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		loc  string
		want string
	}{
		{name: "file uri", loc: "file:///tmp/out.png", want: "/tmp/out.png"},
		{name: "file uri localhost", loc: "file://localhost/tmp/out.png", want: "/tmp/out.png"},
		{name: "percent encoded", loc: "file:///tmp/my%20out.png", want: "/tmp/my out.png"},
		{name: "path scheme", loc: "path:/tmp/out.png", want: "/tmp/out.png"},
		{name: "bare path", loc: "/tmp/out.png", want: "/tmp/out.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.loc)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, loc := range []string{"", "file://remote.example.com/tmp/x.png"} {
		_, err := Decode(loc)
		assert.Error(t, err, "locator %q", loc)
	}
}

func TestRoundTrip_OpensSameFile(t *testing.T) {
	root := t.TempDir()
	for _, assets := range []string{"test_images", "test_files"} {
		for _, scheme := range []Scheme{File, Path} {
			dir := filepath.Join(root, assets)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			want := filepath.Join(dir, "foo.png")
			require.NoError(t, os.WriteFile(want, []byte(assets+string(scheme)), 0o644))

			loc, err := Encode(want, scheme)
			require.NoError(t, err)
			got, err := Decode(loc)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			data, err := os.ReadFile(got)
			require.NoError(t, err)
			assert.Equal(t, assets+string(scheme), string(data))
		}
	}
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("FILE")
	require.NoError(t, err)
	assert.Equal(t, File, s)

	s, err = ParseScheme(" path ")
	require.NoError(t, err)
	assert.Equal(t, Path, s)

	_, err = ParseScheme("http")
	assert.Error(t, err)
}
