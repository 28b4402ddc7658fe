package domain

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

func TestMaterializer_CleanBackedDocumentUsedInPlace(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))

	base := t.TempDir()
	registry := NewRegistry()
	mt := NewMaterializer(adapter.NewLocalSourceFSAdapter(), adapter.NewFlockSlotLocker(),
		WithTempBase(m.Path(base)), WithNamer(NewSlotNamer()), WithRegistry(registry))

	doc := m.Document{Name: "mod.py", Dir: m.Path(root), Origin: m.DiskOrigin{Path: m.Path(path)}}
	project := m.Project{Root: m.Path(root), LineSeparator: m.LF}

	file, err := mt.Materialize(context.Background(), project, doc)
	require.NoError(t, err)

	assert.Equal(t, m.Path(path), file.RealPath())
	assert.False(t, file.Temporary())
	assert.Empty(t, file.TempRoot())
	assert.Equal(t, 0, registry.Len())

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temporary tree for a clean document")

	mt.Release(context.Background(), file)

	_, err = os.Stat(path)
	require.NoError(t, err, "backing file must survive release")
}

func TestMaterializer_UnsavedDocumentOnDisk(t *testing.T) {
	base := t.TempDir()
	registry := NewRegistry()
	mt := NewMaterializer(adapter.NewLocalSourceFSAdapter(), adapter.NewFlockSlotLocker(),
		WithTempBase(m.Path(base)), WithNamer(NewSlotNamer()), WithRegistry(registry))

	project := m.Project{Root: "/proj", LineSeparator: m.CRLF}
	doc := unsavedDoc("/proj/pkg", "mod.py", "a\nb")

	file, err := mt.Materialize(context.Background(), project, doc)
	require.NoError(t, err)

	want := filepath.Join(base, "csi-000", "pkg", "mod.py")
	assert.Equal(t, m.Path(want), file.RealPath())
	assert.Equal(t, m.Path(filepath.Join(base, "csi-000")), file.TempRoot())
	assert.True(t, file.Temporary())
	assert.Equal(t, 1, registry.Len())

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb", string(data))

	_, err = os.Stat(filepath.Join(base, "csi-000.lock"))
	require.NoError(t, err, "slot lock file is present while the file is live")

	file.Release(context.Background())

	_, err = os.Stat(filepath.Join(base, "csi-000"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "csi-000.lock"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, registry.Len())

	// Second release is a no-op.
	file.Release(context.Background())
}

func TestMaterializer_TemporaryPlacement(t *testing.T) {
	tests := []struct {
		name string
		doc  m.Document
		want m.Path
	}{
		{"memory only under root", memoryDoc("/proj/pkg", "scratch.py", "x"), "/tmp/csi-000/pkg/scratch.py"},
		{"outside root is flat", unsavedDoc("/elsewhere/lib", "mod.py", "x"), "/tmp/csi-000/mod.py"},
		{"no parent is flat", memoryDoc("", "scratch.py", "x"), "/tmp/csi-000/scratch.py"},
		{"missing backing file", m.Document{Name: "gone.py", Dir: "/proj", Text: "x", Origin: m.DiskOrigin{Path: "/proj/gone.py"}}, "/tmp/csi-000/gone.py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMemFixture()

			file, err := f.mt.Materialize(context.Background(), testProject, tt.doc)
			require.NoError(t, err)
			t.Cleanup(func() { file.Release(context.Background()) })

			assert.Equal(t, tt.want, file.RealPath())
			assert.Equal(t, "x", f.read(t, file.RealPath()))
		})
	}
}

func TestMaterializer_InvalidName(t *testing.T) {
	for _, name := range []string{"", ".", "..", "../evil.py", `sub\mod.py`} {
		t.Run(name, func(t *testing.T) {
			f := newMemFixture()

			_, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", name, "x"))
			require.ErrorIs(t, err, m.ErrAcquisition)
			assert.Equal(t, 0, f.registry.Len())
		})
	}
}

func TestMaterializer_UnknownOrigin(t *testing.T) {
	f := newMemFixture()

	_, err := f.mt.Materialize(context.Background(), testProject, m.Document{Name: "mod.py", Dir: "/proj"})
	require.ErrorIs(t, err, m.ErrAcquisition)
}

func TestMaterializer_WriteFailureReleasesTree(t *testing.T) {
	f := newMemFixture()
	doc := memoryDoc("/proj/pkg", "mod.py", "€")
	doc.Charset = "ISO-8859-1"

	_, err := f.mt.Materialize(context.Background(), testProject, doc)
	require.ErrorIs(t, err, m.ErrWrite)

	assert.False(t, f.exists("/tmp/csi-000"), "partial tree removed")
	assert.False(t, f.locker.isHeld("/tmp/csi-000.lock"))
	assert.Equal(t, 0, f.registry.Len())
}

func TestMaterializer_InvalidUTF8IsWriteError(t *testing.T) {
	f := newMemFixture()

	_, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "mod.py", "x\xffy"))
	require.ErrorIs(t, err, m.ErrWrite)
	assert.False(t, f.exists("/tmp/csi-000"))
}

func TestMaterializer_SkipsBusySlots(t *testing.T) {
	f := newMemFixture()
	require.NoError(t, f.fs.MkdirAll("/tmp/csi-000", 0o700))

	_, held, err := f.locker.TryLock(context.Background(), "/tmp/csi-001.lock")
	require.NoError(t, err)
	require.True(t, held)

	file, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "mod.py", "x"))
	require.NoError(t, err)
	defer file.Release(context.Background())

	assert.Equal(t, m.Path("/tmp/csi-002"), file.TempRoot())
	assert.True(t, f.exists("/tmp/csi-000"), "foreign tree untouched")
}

func TestMaterializer_SlotsExhausted(t *testing.T) {
	f := newMemFixture()
	f.locker.refuse = true

	_, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "mod.py", "x"))
	require.ErrorIs(t, err, m.ErrSlotsExhausted)
}

func TestMaterializer_ConcurrentMaterializationsGetDistinctRoots(t *testing.T) {
	f := newMemFixture()

	files := make([]*ScannableFile, SlotCount)
	errs := make([]error, SlotCount)

	var wg sync.WaitGroup

	for i := range SlotCount {
		wg.Add(1)

		go func() {
			defer wg.Done()
			files[i], errs[i] = f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj/pkg", "mod.py", "x"))
		}()
	}

	wg.Wait()

	roots := make(map[m.Path]struct{}, SlotCount)
	for i, file := range files {
		require.NoError(t, errs[i])
		roots[file.TempRoot()] = struct{}{}
	}

	assert.Len(t, roots, SlotCount)
	assert.Equal(t, SlotCount, f.registry.Len())

	// Every slot is live now.
	_, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "one-too-many.py", "x"))
	require.ErrorIs(t, err, m.ErrSlotsExhausted)

	ReleaseAll(context.Background(), files)
	assert.Equal(t, 0, f.registry.Len())

	entries, err := afero.ReadDir(f.fs, "/tmp")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMaterializer_ReleaseRefusesUnreservedRoot(t *testing.T) {
	f := newMemFixture()
	require.NoError(t, afero.WriteFile(f.fs, "/tmp/keep/data.py", []byte("x"), 0o600))

	owner, ok := f.mt.(*materializer)
	require.True(t, ok)

	file := &ScannableFile{realPath: "/tmp/keep/data.py", tempRoot: "/tmp/keep", owner: owner}
	owner.registry.add(file)

	file.Release(context.Background())

	assert.True(t, f.exists("/tmp/keep/data.py"))
	assert.Equal(t, 0, f.registry.Len())
}

func TestMaterializer_CancelledContext(t *testing.T) {
	f := newMemFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.mt.Materialize(ctx, testProject, memoryDoc("/proj", "mod.py", "x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestScannableFile_NilRelease(t *testing.T) {
	var file *ScannableFile

	assert.NotPanics(t, func() { file.Release(context.Background()) })
	assert.NotPanics(t, func() { ReleaseAll(context.Background(), []*ScannableFile{nil, nil}) })
}

func TestScannableFile_StringAndSummary(t *testing.T) {
	f := newMemFixture()

	file, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "mod.py", "x"))
	require.NoError(t, err)
	defer file.Release(context.Background())

	assert.Equal(t, "[ScannableFile: file=/tmp/csi-000/mod.py; temporary=true]", file.String())

	summary := Summarize([]*ScannableFile{file, nil})
	require.Len(t, summary, 1)
	assert.Equal(t, m.MaterializedFile{
		Document:  "/proj/mod.py",
		RealPath:  "/tmp/csi-000/mod.py",
		TempRoot:  "/tmp/csi-000",
		Temporary: true,
	}, summary[0])
}

func TestScannableFile_KeepLeavesTreeAndUnregisters(t *testing.T) {
	f := newMemFixture()

	file, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj/pkg", "mod.py", "x"))
	require.NoError(t, err)
	require.Equal(t, 1, f.registry.Len())

	KeepAll(context.Background(), []*ScannableFile{file, nil})

	assert.Equal(t, 0, f.registry.Len())
	assert.False(t, f.locker.isHeld("/tmp/csi-000.lock"), "slot lock released for a later sweep")

	file.Release(context.Background())
	f.registry.ReleaseAll(context.Background())

	assert.Equal(t, "x", f.read(t, "/tmp/csi-000/pkg/mod.py"))
}

func TestMaterializer_ForeignTreeLeavesNoNewLockFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "csi-000"), 0o700))
	require.NoError(t, os.Mkdir(filepath.Join(base, "csi-001"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "csi-001.lock"), nil, 0o600))

	mt := NewMaterializer(adapter.NewLocalSourceFSAdapter(), adapter.NewFlockSlotLocker(),
		WithTempBase(m.Path(base)),
		WithNamer(NewSlotNamer()),
		WithRegistry(NewRegistry()),
	)

	file, err := mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "mod.py", "x"))
	require.NoError(t, err)
	defer file.Release(context.Background())

	assert.Equal(t, m.Path(filepath.Join(base, "csi-002")), file.TempRoot())

	_, err = os.Stat(filepath.Join(base, "csi-000.lock"))
	assert.True(t, os.IsNotExist(err), "lock file created for a foreign tree is removed")

	_, err = os.Stat(filepath.Join(base, "csi-001.lock"))
	assert.NoError(t, err, "pre-existing lock file kept")
}
