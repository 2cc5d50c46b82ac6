package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/project"
)

type artifact struct {
	Module string
	Code   []byte
}

func key(seed byte) Key {
	var k Key
	k[0] = seed
	return k
}

func TestEntryKeySeparatesModulesStagesAndToolchains(t *testing.T) {
	src := project.Combine(project.Digest{1})
	base := EntryKey(src, "lib/a", "check", "0.1.0")

	assert.NotEqual(t, base, EntryKey(src, "lib/b", "check", "0.1.0"), "module must be part of the key")
	assert.NotEqual(t, base, EntryKey(src, "lib/a", "codegen", "0.1.0"), "stage must be part of the key")
	assert.NotEqual(t, base, EntryKey(src, "lib/a", "check", "0.2.0"), "toolchain must be part of the key")
	assert.Equal(t, base, EntryKey(src, "lib/a", "check", "0.1.0"), "key derivation must be stable")

	// разделители исключают склейку соседних полей
	assert.NotEqual(t, EntryKey(src, "ab", "c", "v"), EntryKey(src, "a", "bc", "v"))
	assert.NotEqual(t, EntryKey(src, "m", "ab", "c"), EntryKey(src, "m", "a", "bc"))
}

func TestMemStoreFirstWriterWins(t *testing.T) {
	s := NewMemStore()
	k := key(1)

	require.NoError(t, s.Put("check", k, &artifact{Module: "a", Code: []byte("first")}))
	require.NoError(t, s.Put("check", k, &artifact{Module: "a", Code: []byte("second")}))

	var got artifact
	require.True(t, s.Get("check", k, &got))
	assert.Equal(t, "first", string(got.Code))
	assert.Equal(t, 1, s.Len())
}

func TestMemStoreStageNamespaces(t *testing.T) {
	s := NewMemStore()
	k := key(2)
	require.NoError(t, s.Put("parse", k, &artifact{Module: "a"}))

	var got artifact
	assert.False(t, s.Get("check", k, &got), "stages must not share entries")
	assert.True(t, s.Get("parse", k, &got))
}

func TestDiskStoreRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), "0.1.0")
	require.NoError(t, err)

	k := key(3)
	put := artifact{Module: "util/math", Code: []byte(".unit util/math\n")}
	require.NoError(t, s.Put("codegen", k, &put))

	var got artifact
	require.True(t, s.Get("codegen", k, &got))
	assert.Equal(t, put, got)

	var miss artifact
	assert.False(t, s.Get("codegen", key(4), &miss))
}

func TestDiskStorePutIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir(), "0.1.0")
	require.NoError(t, err)

	k := key(5)
	require.NoError(t, s.Put("check", k, &artifact{Code: []byte("first")}))
	require.NoError(t, s.Put("check", k, &artifact{Code: []byte("second")}))

	var got artifact
	require.True(t, s.Get("check", k, &got))
	assert.Equal(t, "first", string(got.Code), "first writer wins")
}

func TestDiskStoreCorruptEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "0.1.0")
	require.NoError(t, err)

	k := key(6)
	require.NoError(t, s.Put("parse", k, &artifact{Code: []byte("payload")}))

	// портим файл на диске
	path := s.pathFor("parse", k)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	var got artifact
	assert.False(t, s.Get("parse", k, &got), "corrupt entry must be a miss")

	// самовосстановление: Put кладёт свежий артефакт поверх мусора
	require.NoError(t, os.Remove(path))
	require.NoError(t, s.Put("parse", k, &artifact{Code: []byte("payload")}))
	assert.True(t, s.Get("parse", k, &got))
}

func TestDiskStoreToolchainMismatchWipes(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "0.1.0")
	require.NoError(t, err)
	k := key(7)
	require.NoError(t, s.Put("check", k, &artifact{Code: []byte("old")}))

	s2, err := Open(dir, "0.2.0")
	require.NoError(t, err)
	var got artifact
	assert.False(t, s2.Get("check", k, &got), "new toolchain must not see old artifacts")

	stamp, err := os.ReadFile(filepath.Join(dir, "toolchain"))
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", string(stamp))
}

func TestDiskStoreEnvelopeToolchainChecked(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "0.1.0")
	require.NoError(t, err)
	k := key(8)
	require.NoError(t, s.Put("check", k, &artifact{Code: []byte("old")}))

	// конверт проверяется даже при совпадающем штампе каталога
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toolchain"), []byte("0.9.9"), 0o600))
	s3 := &DiskStore{dir: dir, toolchain: "0.9.9"}
	var got artifact
	assert.False(t, s3.Get("check", k, &got))
}

func TestInvalidate(t *testing.T) {
	s, err := Open(t.TempDir(), "0.1.0")
	require.NoError(t, err)
	k := key(9)
	require.NoError(t, s.Put("codegen", k, &artifact{Code: []byte("x")}))
	require.NoError(t, s.Invalidate())

	var got artifact
	assert.False(t, s.Get("codegen", k, &got))
}

func TestNopStore(t *testing.T) {
	var s Store = Nop{}
	require.NoError(t, s.Put("check", key(10), &artifact{}))
	var got artifact
	assert.False(t, s.Get("check", key(10), &got))
	require.NoError(t, s.Invalidate())
}
