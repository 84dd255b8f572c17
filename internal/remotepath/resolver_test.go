package remotepath

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
	"github.com/imqcam/girder-upload/testutil"
)

func newTestResolver(t *testing.T) (*Resolver, *testutil.FakeGirder) {
	t.Helper()

	fake := testutil.NewFakeGirder()

	return NewResolver(fake, nil, true), fake
}

func TestNewRoot(t *testing.T) {
	r, err := NewRoot("f1", "")
	require.NoError(t, err)
	assert.Equal(t, FolderRoot{ID: "f1"}, r)

	r, err = NewRoot("", "Test")
	require.NoError(t, err)
	assert.Equal(t, CollectionRoot{Name: "Test"}, r)

	_, err = NewRoot("f1", "Test")
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)

	_, err = NewRoot("", "")
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}

func TestResolveFolder_InvalidRoot(t *testing.T) {
	res, fake := newTestResolver(t)

	_, err := res.ResolveFolder(context.Background(), nil, []string{"a"}, true)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)

	_, err = res.ResolveFolder(context.Background(), FolderRoot{}, []string{"a"}, true)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
	assert.Zero(t, fake.Calls("ListFolders"))
}

func TestResolveFolder_CollectionNotFound(t *testing.T) {
	res, fake := newTestResolver(t)
	fake.AddCollection("Other")

	_, err := res.ResolveFolder(context.Background(), CollectionRoot{Name: "Test"}, nil, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "collection", nf.Kind)
	assert.Equal(t, "Test", nf.Missing)
	assert.Zero(t, fake.Calls("CreateFolder"))
}

func TestResolveFolder_CollectionItself(t *testing.T) {
	res, fake := newTestResolver(t)
	col := fake.AddCollection("Test")

	f, err := res.ResolveFolder(context.Background(), CollectionRoot{Name: "Test"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, col.ID, f.ID)
	assert.Equal(t, girder.ParentCollection, f.ParentType)
}

func TestResolveFolder_DepthZeroUsesCollectionParentType(t *testing.T) {
	res, fake := newTestResolver(t)
	col := fake.AddCollection("Test")
	top := fake.AddFolder(girder.ParentCollection, col.ID, "top")
	sub := fake.AddFolder(girder.ParentFolder, top.ID, "sub")

	f, err := res.ResolveFolder(context.Background(), CollectionRoot{Name: "Test"}, []string{"top", "sub"}, false)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, f.ID)
}

func TestResolveFolder_MissingWithoutCreate(t *testing.T) {
	res, fake := newTestResolver(t)
	root := fake.AddFolder(girder.ParentCollection, fake.AddCollection("Test").ID, "root")
	fake.AddFolder(girder.ParentFolder, root.ID, "a")

	_, err := res.ResolveFolder(context.Background(), FolderRoot{ID: root.ID}, []string{"a", "b", "c"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "folder", nf.Kind)
	assert.Equal(t, "b", nf.Missing)
	assert.Equal(t, "folder:"+root.ID+"/a", nf.Resolved)
	assert.Zero(t, fake.Calls("CreateFolder"))
}

func TestResolveFolder_CreateThenFind(t *testing.T) {
	res, fake := newTestResolver(t)
	col := fake.AddCollection("Test")
	root := CollectionRoot{Name: "Test"}
	ctx := context.Background()

	_, err := res.ResolveFolder(ctx, root, []string{"x", "y"}, false)
	require.ErrorIs(t, err, errkind.ErrNotFound)

	created, err := res.ResolveFolder(ctx, root, []string{"x", "y"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls("CreateFolder"))
	assert.True(t, created.Public)

	top := fake.Folders(col.ID)
	require.Len(t, top, 1)
	assert.Equal(t, "x", top[0].Name)
	assert.Equal(t, girder.ParentCollection, top[0].ParentType)

	found, err := res.ResolveFolder(ctx, root, []string{"x", "y"}, false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 2, fake.Calls("CreateFolder"))
}

func TestResolveFolder_PrivateFolders(t *testing.T) {
	fake := testutil.NewFakeGirder()
	res := NewResolver(fake, nil, false)
	root := fake.AddFolder(girder.ParentCollection, fake.AddCollection("Test").ID, "root")

	f, err := res.ResolveFolder(context.Background(), FolderRoot{ID: root.ID}, []string{"p"}, true)
	require.NoError(t, err)
	assert.False(t, f.Public)
}

func TestResolveFolder_NFCNormalization(t *testing.T) {
	res, fake := newTestResolver(t)
	root := fake.AddFolder(girder.ParentCollection, fake.AddCollection("Test").ID, "root")

	decomposed := "cafe\u0301"
	composed := "caf\u00e9"

	created, err := res.ResolveFolder(context.Background(), FolderRoot{ID: root.ID}, []string{decomposed}, true)
	require.NoError(t, err)
	assert.Equal(t, composed, created.Name)

	found, err := res.ResolveFolder(context.Background(), FolderRoot{ID: root.ID}, []string{composed}, false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestResolveItemAndFile(t *testing.T) {
	res, fake := newTestResolver(t)
	root := fake.AddFolder(girder.ParentCollection, fake.AddCollection("Test").ID, "root")
	sub := fake.AddFolder(girder.ParentFolder, root.ID, "b")
	ctx := context.Background()

	it, err := fake.CreateItem(ctx, sub.ID, "c.bin", false)
	require.NoError(t, err)

	_, _, err = res.ResolveItemAndFile(ctx, FolderRoot{ID: root.ID}, []string{"b", "c.bin"})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "file", nf.Kind)

	up, err := fake.UploadFile(ctx, girder.ParentItem, it.ID, "c.bin", strings.NewReader("abc"), 3, "", nil)
	require.NoError(t, err)

	gotItem, gotFile, err := res.ResolveItemAndFile(ctx, FolderRoot{ID: root.ID}, []string{"b", "c.bin"})
	require.NoError(t, err)
	assert.Equal(t, it.ID, gotItem.ID)
	assert.Equal(t, up.ID, gotFile.ID)
}

func TestResolveItem_Missing(t *testing.T) {
	res, fake := newTestResolver(t)
	root := fake.AddFolder(girder.ParentCollection, fake.AddCollection("Test").ID, "root")

	_, err := res.ResolveItem(context.Background(), FolderRoot{ID: root.ID}, []string{"nope.txt"})
	require.ErrorIs(t, err, errkind.ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "item", nf.Kind)
	assert.Equal(t, "nope.txt", nf.Missing)

	_, err = res.ResolveItem(context.Background(), FolderRoot{ID: root.ID}, []string{"missing", "x"})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "folder", nf.Kind)
}

func TestResolveItem_EmptyPath(t *testing.T) {
	res, _ := newTestResolver(t)

	_, err := res.ResolveItem(context.Background(), FolderRoot{ID: "f"}, nil)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}

func TestResolveItem_LastListedWins(t *testing.T) {
	res, fake := newTestResolver(t)
	root := fake.AddFolder(girder.ParentCollection, fake.AddCollection("Test").ID, "root")
	ctx := context.Background()

	_, err := fake.CreateItem(ctx, root.ID, "dup", false)
	require.NoError(t, err)
	second, err := fake.CreateItem(ctx, root.ID, "dup", false)
	require.NoError(t, err)

	got, err := res.ResolveItem(ctx, FolderRoot{ID: root.ID}, []string{"dup"})
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestSplitAndJoin(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("/a//b/c/"))
	assert.Empty(t, Split(""))
	assert.Equal(t, []string{"caf\u00e9"}, Split("cafe\u0301"))
	assert.Equal(t, "a/b", Join([]string{"a", "b"}))
}
