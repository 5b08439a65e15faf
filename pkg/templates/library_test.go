package templates

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeowmog/mezastar/pkg/types"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

func iconPNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < size/2 {
				img.Set(x, y, color.NRGBA{200, 40, 40, 255})
			} else {
				img.Set(x, y, color.NRGBA{20, 20, 20, 255})
			}
		}
	}
	data, err := utils.EncodeImageToBuffer(img)
	require.NoError(t, err)
	return data
}

func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestAddListRemove(t *testing.T) {
	lib, err := Open(t.TempDir())
	require.NoError(t, err)
	lib.now = fixedClock(time.Unix(1700000000, 0))

	first, err := lib.Add(types.Fire, iconPNG(t, 8))
	require.NoError(t, err)
	second, err := lib.Add(types.Fire, iconPNG(t, 10))
	require.NoError(t, err)
	_, err = lib.Add(types.Water, iconPNG(t, 8))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.FileExists(t, filepath.Join(lib.Dir(), first.ID+".png"))

	listed := lib.List()
	require.Len(t, listed[types.Fire], 2)
	assert.Equal(t, first.ID, listed[types.Fire][0].ID)
	assert.Equal(t, 10, listed[types.Fire][1].Width)
	assert.Len(t, listed[types.Water], 1)
	assert.Equal(t, 3, lib.Len())

	require.NoError(t, lib.Remove(first.ID))
	assert.NoFileExists(t, filepath.Join(lib.Dir(), first.ID+".png"))
	assert.Len(t, lib.List()[types.Fire], 1)
	assert.ErrorIs(t, lib.Remove(first.ID), ErrNotFound)
	assert.ErrorIs(t, lib.Remove("../cards"), ErrInvalidID)
}

func TestAddRejectsBadInput(t *testing.T) {
	lib, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = lib.Add(types.None, iconPNG(t, 8))
	assert.ErrorIs(t, err, ErrInvalidLabel)
	_, err = lib.Add(types.Type("Sound"), iconPNG(t, 8))
	assert.ErrorIs(t, err, ErrInvalidLabel)
	_, err = lib.Add(types.Fire, []byte("nope"))
	assert.Error(t, err)
	assert.Equal(t, 0, lib.Len())
}

func TestAddSameInstantStaysUnique(t *testing.T) {
	lib, err := Open(t.TempDir())
	require.NoError(t, err)
	frozen := time.Unix(1700000000, 0)
	lib.now = func() time.Time { return frozen }

	a, err := lib.Add(types.Grass, iconPNG(t, 8))
	require.NoError(t, err)
	b, err := lib.Add(types.Grass, iconPNG(t, 8))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestReloadParsesFileNames(t *testing.T) {
	dir := t.TempDir()
	data := iconPNG(t, 6)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Fire.png"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "electric_1700000000000000000.png"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sound_1.png"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	lib, err := Open(dir)
	require.NoError(t, err)
	listed := lib.List()
	assert.Len(t, listed, 2)
	assert.Len(t, listed[types.Fire], 1)
	require.Len(t, listed[types.Electric], 1)
	assert.Equal(t, time.Unix(0, 1700000000000000000), listed[types.Electric][0].CreatedAt)

	all := lib.All()
	require.Len(t, all, 2)
	assert.Equal(t, types.Fire, all[0].Label, "canonical type order puts Fire before Electric")
}

func TestReloadSeesReplacedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Fire.png")
	require.NoError(t, os.WriteFile(path, iconPNG(t, 8), 0o644))

	lib, err := Open(dir)
	require.NoError(t, err)
	require.Len(t, lib.All(), 1)
	assert.Equal(t, 8, lib.All()[0].Width)

	require.NoError(t, os.WriteFile(path, iconPNG(t, 16), 0o644))
	require.NoError(t, lib.Reload())

	got := lib.All()
	require.Len(t, got, 1)
	assert.Equal(t, 16, got[0].Width)
	assert.Equal(t, image.Rect(0, 0, 16, 16), got[0].Image.Bounds())
}

func TestWatchPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Ice_42.png"), iconPNG(t, 6), 0o644))

	assert.Eventually(t, func() bool {
		return len(lib.List()[types.Ice]) == 1
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
