package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	ImageHeight = 28
	ImageWidth  = 28
	PixelLength = ImageHeight * ImageWidth
	NumDigits   = 10
)

var (
	imagesMagic = []byte{0x00, 0x00, 0x08, 0x03}
	labelsMagic = []byte{0x00, 0x00, 0x08, 0x01}
)

// Record is one labeled image. Pixels are raw intensities, 0..255.
type Record struct {
	Label  int
	Pixels []byte
}

// LoadDataset reads a paired IDX images/labels file set.
//
// Every header field is checked before any pixel is read and every label
// is range-checked, so a bad file set fails here as a whole instead of
// part way through training.
func LoadDataset(imagesPath, labelsPath string) ([]Record, error) {
	fImg, err := os.Open(imagesPath)
	if err != nil {
		return nil, errors.Wrap(err, "open image file")
	}
	defer fImg.Close()

	fLbl, err := os.Open(labelsPath)
	if err != nil {
		return nil, errors.Wrap(err, "open label file")
	}
	defer fLbl.Close()

	return ReadDataset(bufio.NewReader(fImg), bufio.NewReader(fLbl))
}

// ReadDataset parses the two IDX streams.
func ReadDataset(images, labels io.Reader) ([]Record, error) {
	var headerImg [16]byte
	if _, err := io.ReadFull(images, headerImg[:]); err != nil {
		return nil, formatErrorf("read image header: %v", err)
	}
	var headerLbl [8]byte
	if _, err := io.ReadFull(labels, headerLbl[:]); err != nil {
		return nil, formatErrorf("read label header: %v", err)
	}

	if !bytes.Equal(headerImg[0:4], imagesMagic) {
		return nil, formatErrorf("image magic % x, want % x", headerImg[0:4], imagesMagic)
	}
	if !bytes.Equal(headerLbl[0:4], labelsMagic) {
		return nil, formatErrorf("label magic % x, want % x", headerLbl[0:4], labelsMagic)
	}

	numImages := binary.BigEndian.Uint32(headerImg[4:8])
	numLabels := binary.BigEndian.Uint32(headerLbl[4:8])
	if numImages != numLabels {
		return nil, formatErrorf("%d images but %d labels", numImages, numLabels)
	}
	numRows := binary.BigEndian.Uint32(headerImg[8:12])
	numCols := binary.BigEndian.Uint32(headerImg[12:16])
	if numRows != ImageHeight || numCols != ImageWidth {
		return nil, formatErrorf("expected %dx%d images, got %dx%d", ImageHeight, ImageWidth, numRows, numCols)
	}

	n := int(numImages)
	lbls := make([]byte, n)
	if _, err := io.ReadFull(labels, lbls); err != nil {
		return nil, formatErrorf("read %d labels: %v", n, err)
	}
	// One backing buffer for all pixels; records slice into it.
	pixels := make([]byte, n*PixelLength)
	if _, err := io.ReadFull(images, pixels); err != nil {
		return nil, formatErrorf("read %d images: %v", n, err)
	}

	db := make([]Record, n)
	for i := range db {
		if lbls[i] >= NumDigits {
			return nil, formatErrorf("label %d of record %d out of range", lbls[i], i)
		}
		off := i * PixelLength
		db[i] = Record{Label: int(lbls[i]), Pixels: pixels[off : off+PixelLength : off+PixelLength]}
	}
	return db, nil
}
