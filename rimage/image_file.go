package rimage

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.viam.com/utils"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// register the webp decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered format (png, jpeg, bmp, tiff, webp, ppm, qoi).
func DecodeImage(r io.Reader) (*Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode image")
	}
	return NewImageFromStdImage(img), nil
}

// ReadImageFromFile reads and decodes an image from disk.
func ReadImageFromFile(path string) (img *Image, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	img, err = DecodeImage(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return img, nil
}

// CanEncode reports whether EncodeImage supports the extension.
func CanEncode(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".ppm", ".qoi":
		return true
	}
	return false
}

// EncodeImage writes img in the format named by ext (".png", ".jpg", ".jpeg", ".bmp", ".tif",
// ".tiff", ".ppm", ".qoi"). The comparison is case-insensitive.
func EncodeImage(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case ".ppm":
		return ppm.Encode(w, img)
	case ".qoi":
		return qoi.Encode(w, img)
	default:
		return errors.Errorf("don't know how to write %q files", ext)
	}
}

// WriteImageToFile writes img to path, choosing the encoder by the file extension. Parent
// directories are created as needed.
func WriteImageToFile(path string, img image.Image) (err error) {
	ext := filepath.Ext(path)
	if !CanEncode(ext) {
		return errors.Errorf("don't know how to write %q files", ext)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(f)
	if err := EncodeImage(w, img, ext); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	return w.Flush()
}
