package io

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testLoader() *ImageLoader {
	logger, _ := test.NewNullLogger()
	return NewImageLoader(logrus.NewEntry(logger))
}

func TestIsSupportedImageFormat(t *testing.T) {
	tests := map[string]bool{
		"frame.png":           true,
		"FRAME.JPG":           true,
		"dir.v2/scan.tiff":    true,
		"shot.bmp":            true,
		"notes.txt":           false,
		"noextension":         false,
		"archive.png.gz":      false,
		"dir.png/noextension": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsSupportedImageFormat(path), path)
	}
}

func TestImageLoader_RoundTrip(t *testing.T) {
	il := testLoader()
	path := filepath.Join(t.TempDir(), "frame.png")

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 24, 32, gocv.MatTypeCV8UC3)
	defer src.Close()
	require.NoError(t, il.SaveImage(src, path))

	loaded, err := il.LoadImage(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, 32, loaded.Cols())
	assert.Equal(t, 24, loaded.Rows())
	assert.Equal(t, 3, loaded.Channels())
	assert.Equal(t, []uint8{10, 20, 30}, []uint8(loaded.GetVecbAt(5, 5)))
}

func TestImageLoader_Errors(t *testing.T) {
	il := testLoader()
	dir := t.TempDir()

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, il.SaveImage(empty, filepath.Join(dir, "x.png")))

	src := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer src.Close()
	assert.Error(t, il.SaveImage(src, filepath.Join(dir, "x.txt")))

	_, err := il.LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	_, err = il.LoadImage(filepath.Join(dir, "x.gif"))
	assert.Error(t, err)
}
