package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"sort"

	"climate-viewer/internal/raster"
)

var enc = binary.LittleEndian

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

type byTag []ifdEntry

func (d byTag) Len() int           { return len(d) }
func (d byTag) Less(i, j int) bool { return d[i].tag < d[j].tag }
func (d byTag) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }

// GeoTags builds the georeferencing tags for an export covering the given
// extent: ModelPixelScale, ModelTiepoint and a WGS84 geographic key
// directory.
func GeoTags(b raster.Bounds, width, height int) map[uint16]interface{} {
	pixelWidth := (b.MaxLon - b.MinLon) / float64(width)
	pixelHeight := (b.MaxLat - b.MinLat) / float64(height)

	return map[uint16]interface{}{
		TagType_ModelPixelScaleTag: []float64{pixelWidth, pixelHeight, 0},
		TagType_ModelTiepointTag:   []float64{0, 0, 0, b.MinLon, b.MaxLat, 0},
		// GTModelTypeGeoKey=2 (geographic), GTRasterTypeGeoKey=1 (area),
		// GeographicTypeGeoKey=4326 (WGS84)
		TagType_GeoKeyDirectoryTag: []uint16{
			1, 1, 0, 3,
			1024, 0, 1, 2,
			1025, 0, 1, 1,
			2048, 0, 1, 4326,
		},
	}
}

// Encode writes the image m to w as an uncompressed RGBA TIFF with the given
// extra tags appended to the IFD. Supported extra tag value types: []uint16
// (SHORT), []float64 (DOUBLE) and string (ASCII).
func Encode(w io.Writer, m image.Image, extraTags map[uint16]interface{}) error {
	bounds := m.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Header: little endian marker, version 42, first IFD at offset 8
	header := []byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}
	if _, err := w.Write(header); err != nil {
		return err
	}

	// Pixel data: 8-bit RGBA, one strip
	pixelData := new(bytes.Buffer)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := m.At(x, y).RGBA()
			pixelData.WriteByte(uint8(r >> 8))
			pixelData.WriteByte(uint8(g >> 8))
			pixelData.WriteByte(uint8(b >> 8))
			pixelData.WriteByte(uint8(a >> 8))
		}
	}

	pixels := pixelData.Bytes()
	imageLen := uint32(len(pixels))

	var entries []ifdEntry
	addEntry := func(tag uint16, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, data})
	}

	addEntry(TagType_ImageWidth, DataType_Short, 1, enc16(uint16(width)))
	addEntry(TagType_ImageLength, DataType_Short, 1, enc16(uint16(height)))
	addEntry(TagType_BitsPerSample, DataType_Short, 4, enc16s([]uint16{8, 8, 8, 8}))
	addEntry(TagType_Compression, DataType_Short, 1, enc16(CompressionNone))
	addEntry(TagType_PhotometricInterpretation, DataType_Short, 1, enc16(2)) // RGB
	addEntry(TagType_SamplesPerPixel, DataType_Short, 1, enc16(4))
	addEntry(TagType_RowsPerStrip, DataType_Short, 1, enc16(uint16(height)))
	addEntry(TagType_XResolution, DataType_Rational, 1, encRational(72, 1))
	addEntry(TagType_YResolution, DataType_Rational, 1, encRational(72, 1))
	addEntry(TagType_ResolutionUnit, DataType_Short, 1, enc16(2)) // inch

	// Filled in once the pixel offset is known
	addEntry(TagType_StripOffsets, DataType_Long, 1, make([]byte, 4))
	addEntry(TagType_StripByteCounts, DataType_Long, 1, make([]byte, 4))

	for tag, val := range extraTags {
		switch v := val.(type) {
		case []uint16:
			addEntry(tag, DataType_Short, uint32(len(v)), enc16s(v))
		case []float64:
			addEntry(tag, DataType_Double, uint32(len(v)), encDoubles(v))
		case string:
			// ASCII values carry a null terminator
			b := append([]byte(v), 0)
			addEntry(tag, DataType_ASCII, uint32(len(b)), b)
		default:
			return fmt.Errorf("unsupported tag value type for tag %d", tag)
		}
	}

	sort.Sort(byTag(entries))

	// Layout: header, IFD table, out-of-line values, pixel strip.
	ifdSize := 2 + 12*len(entries) + 4
	valueDataOffset := 8 + ifdSize

	var largeDataBuf bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.data) > 4 {
			// Value does not fit the entry; relocate it to the data
			// area and store its offset instead.
			currentOffset := uint32(valueDataOffset + largeDataBuf.Len())
			largeDataBuf.Write(e.data)
			e.data = enc32(currentOffset)
		}
	}

	pixelsOffset := uint32(valueDataOffset + largeDataBuf.Len())
	for i := range entries {
		if entries[i].tag == TagType_StripOffsets {
			entries[i].data = enc32(pixelsOffset)
		}
		if entries[i].tag == TagType_StripByteCounts {
			entries[i].data = enc32(imageLen)
		}
	}

	if err := binary.Write(w, enc, uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(w, enc, e.tag); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.datatype); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.count); err != nil {
			return err
		}

		var val [4]byte
		copy(val[:], e.data)
		if _, err := w.Write(val[:]); err != nil {
			return err
		}
	}

	// Next IFD offset: none
	if err := binary.Write(w, enc, uint32(0)); err != nil {
		return err
	}

	if _, err := largeDataBuf.WriteTo(w); err != nil {
		return err
	}
	if _, err := w.Write(pixels); err != nil {
		return err
	}

	return nil
}

func enc16(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func enc32(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func enc16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func encRational(num, den uint32) []byte {
	b := make([]byte, 8)
	enc.PutUint32(b[:4], num)
	enc.PutUint32(b[4:], den)
	return b
}
