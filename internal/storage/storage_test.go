package storage_test

import (
	"io"
	"testing"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresent(t *testing.T) {
	assert.True(t, storage.New(afero.NewMemMapFs()).Present())

	missing := afero.NewBasePathFs(afero.NewMemMapFs(), "/card")
	assert.False(t, storage.New(missing).Present())
}

func TestCreateWriteOpen(t *testing.T) {
	vol := storage.New(afero.NewMemMapFs())

	f, err := vol.Create("log.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("timedelta_ms,Xacc,Yacc,Zacc\n"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	assert.True(t, vol.Exists("log.csv"))
	assert.True(t, vol.Exists("/log.csv"))

	r, err := vol.Open("log.csv")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "timedelta_ms,Xacc,Yacc,Zacc\n", string(data))

	info, err := r.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size())
}

func TestCreateTruncates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.csv", []byte("old content"), 0o644))

	vol := storage.New(fs)
	f, err := vol.Create("a.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := afero.ReadFile(fs, "/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCreateReadOnly(t *testing.T) {
	vol := storage.New(afero.NewReadOnlyFs(afero.NewMemMapFs()))

	_, err := vol.Create("log.csv")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrFileOpen))
}

func TestOpenMissing(t *testing.T) {
	vol := storage.New(afero.NewMemMapFs())

	_, err := vol.Open("nope.csv")
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.csv", []byte("x"), 0o644))
	vol := storage.New(fs)

	require.NoError(t, vol.Remove("a.csv"))
	assert.False(t, vol.Exists("a.csv"))

	err := vol.Remove("a.csv")
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestRemoveReadOnly(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/a.csv", []byte("x"), 0o644))
	vol := storage.New(afero.NewReadOnlyFs(base))

	err := vol.Remove("a.csv")
	assert.True(t, errors.HasCode(err, errors.ErrRemoveFailed))
}

func TestList(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/b.csv", []byte("12345"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/a.csv", []byte("1"), 0o644))
	require.NoError(t, fs.MkdirAll("/System Volume Information", 0o755))

	entries, err := storage.New(fs).List()
	require.NoError(t, err)
	assert.Equal(t, []storage.Entry{
		{Name: "a.csv", Size: 1},
		{Name: "b.csv", Size: 5},
	}, entries)
}

func TestListUnavailable(t *testing.T) {
	vol := storage.New(afero.NewBasePathFs(afero.NewMemMapFs(), "/card"))

	_, err := vol.List()
	assert.True(t, errors.HasCode(err, errors.ErrStorageUnavailable))
}

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "log.csv", want: "/log.csv"},
		{in: "///log.csv", want: "/log.csv"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
		{in: "..", wantErr: true},
		{in: ".", wantErr: true},
		{in: "../etc/passwd", wantErr: true},
		{in: "dir/log.csv", wantErr: true},
		{in: `..\boot.ini`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := storage.Clean(tt.in)
		if tt.wantErr {
			assert.True(t, errors.HasCode(err, errors.ErrInvalidName), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExistsInvalidName(t *testing.T) {
	assert.False(t, storage.New(afero.NewMemMapFs()).Exists("../x"))
}
