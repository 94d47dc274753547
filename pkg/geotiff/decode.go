package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hhrutter/lzw"
	"github.com/hhrutter/tiff"

	"climate-viewer/internal/raster"
)

// Decoder decodes GeoTIFF bytes into a raster. It implements raster.Decoder.
type Decoder struct{}

// NewDecoder creates a GeoTIFF decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses a GeoTIFF body and returns the structured raster. Rasters
// without georeferencing tags decode with zero bounds; the caller decides
// whether that is fatal.
func (d *Decoder) Decode(data []byte) (*raster.Raster, error) {
	p, err := newParser(data)
	if err != nil {
		return nil, &raster.DecodeError{Reason: "not a TIFF", Err: err}
	}

	width, height, err := p.dimensions()
	if err != nil {
		return nil, &raster.DecodeError{Reason: "missing image dimensions", Err: err}
	}

	r := &raster.Raster{Width: width, Height: height}
	p.applyGeoreferencing(r)
	p.applyNoData(r)

	bands, err := p.readBands(width, height)
	if err != nil {
		// Layouts the native reader does not handle (JPEG/deflate
		// compressed RGB exports mostly) go through the image codec.
		bands, err = imageFallback(data, width, height)
		if err != nil {
			return nil, &raster.DecodeError{Reason: "unsupported raster layout", Err: err}
		}
	}
	r.Bands = bands

	if err := r.Validate(); err != nil {
		return nil, &raster.DecodeError{Reason: "inconsistent raster structure", Err: err}
	}

	return r, nil
}

// ifdField is one resolved IFD entry: its type and raw value bytes.
type ifdField struct {
	datatype uint16
	count    uint32
	raw      []byte
}

type parser struct {
	data   []byte
	bo     binary.ByteOrder
	fields map[uint16]ifdField
}

func newParser(data []byte) (*parser, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("file too short (%d bytes)", len(data))
	}

	p := &parser{data: data, fields: make(map[uint16]ifdField)}

	switch {
	case data[0] == 'I' && data[1] == 'I':
		p.bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		p.bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid byte order marker %q", data[:2])
	}

	if p.bo.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("invalid TIFF version marker")
	}

	ifdOffset := p.bo.Uint32(data[4:8])
	if err := p.readIFD(ifdOffset); err != nil {
		return nil, err
	}

	return p, nil
}

// readIFD resolves every entry of the first image directory. Later IFDs hold
// COG overview levels; the viewer always renders the full-resolution one.
func (p *parser) readIFD(offset uint32) error {
	if int(offset)+2 > len(p.data) {
		return fmt.Errorf("IFD offset %d out of range", offset)
	}

	count := int(p.bo.Uint16(p.data[offset : offset+2]))
	entriesEnd := int(offset) + 2 + count*12
	if entriesEnd > len(p.data) {
		return fmt.Errorf("truncated IFD: %d entries at offset %d", count, offset)
	}

	for i := 0; i < count; i++ {
		entry := p.data[int(offset)+2+i*12 : int(offset)+2+(i+1)*12]
		tag := p.bo.Uint16(entry[0:2])
		datatype := p.bo.Uint16(entry[2:4])
		valueCount := p.bo.Uint32(entry[4:8])

		size := typeSize(datatype) * int(valueCount)
		if size == 0 {
			continue
		}

		var raw []byte
		if size <= 4 {
			raw = entry[8 : 8+size]
		} else {
			valueOffset := int(p.bo.Uint32(entry[8:12]))
			if valueOffset+size > len(p.data) {
				return fmt.Errorf("tag %d value out of range", tag)
			}
			raw = p.data[valueOffset : valueOffset+size]
		}

		p.fields[tag] = ifdField{datatype: datatype, count: valueCount, raw: raw}
	}

	return nil
}

func typeSize(datatype uint16) int {
	switch datatype {
	case DataType_Byte, DataType_ASCII, DataType_SByte, 7: // 7 = undefined
		return 1
	case DataType_Short, DataType_SShort:
		return 2
	case DataType_Long, DataType_SLong, DataType_Float, DataType_IFD:
		return 4
	case DataType_Rational, DataType_Double, 10: // 10 = signed rational
		return 8
	default:
		return 0
	}
}

// uintValues reads an integer-typed field as uint64s.
func (p *parser) uintValues(tag uint16) ([]uint64, bool) {
	f, ok := p.fields[tag]
	if !ok {
		return nil, false
	}

	size := typeSize(f.datatype)
	values := make([]uint64, f.count)
	for i := range values {
		off := i * size
		switch f.datatype {
		case DataType_Byte, DataType_SByte:
			values[i] = uint64(f.raw[off])
		case DataType_Short, DataType_SShort:
			values[i] = uint64(p.bo.Uint16(f.raw[off:]))
		case DataType_Long, DataType_SLong, DataType_IFD:
			values[i] = uint64(p.bo.Uint32(f.raw[off:]))
		default:
			return nil, false
		}
	}
	return values, true
}

func (p *parser) uintValue(tag uint16, fallback uint64) uint64 {
	values, ok := p.uintValues(tag)
	if !ok || len(values) == 0 {
		return fallback
	}
	return values[0]
}

// doubleValues reads a FLOAT or DOUBLE field.
func (p *parser) doubleValues(tag uint16) ([]float64, bool) {
	f, ok := p.fields[tag]
	if !ok {
		return nil, false
	}

	values := make([]float64, f.count)
	for i := range values {
		switch f.datatype {
		case DataType_Float:
			values[i] = float64(math.Float32frombits(p.bo.Uint32(f.raw[i*4:])))
		case DataType_Double:
			values[i] = math.Float64frombits(p.bo.Uint64(f.raw[i*8:]))
		default:
			return nil, false
		}
	}
	return values, true
}

func (p *parser) asciiValue(tag uint16) (string, bool) {
	f, ok := p.fields[tag]
	if !ok || f.datatype != DataType_ASCII {
		return "", false
	}
	return strings.TrimRight(string(f.raw), "\x00"), true
}

func (p *parser) dimensions() (width, height int, err error) {
	width = int(p.uintValue(TagType_ImageWidth, 0))
	height = int(p.uintValue(TagType_ImageLength, 0))
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	return width, height, nil
}

// applyGeoreferencing derives the geographic extent from the ModelPixelScale
// and ModelTiepoint tags. Both missing tags and degenerate values leave the
// bounds zeroed.
func (p *parser) applyGeoreferencing(r *raster.Raster) {
	scale, okScale := p.doubleValues(TagType_ModelPixelScaleTag)
	tiepoint, okTie := p.doubleValues(TagType_ModelTiepointTag)
	if !okScale || !okTie || len(scale) < 2 || len(tiepoint) < 6 {
		return
	}

	sx, sy := scale[0], scale[1]
	if sx <= 0 || sy <= 0 {
		return
	}

	// Tiepoint maps raster position (i, j) to model position (x, y).
	i, j := tiepoint[0], tiepoint[1]
	x, y := tiepoint[3], tiepoint[4]

	minLon := x - i*sx
	maxLat := y + j*sy

	r.PixelWidth = sx
	r.PixelHeight = sy
	r.Bounds = raster.Bounds{
		MinLon: minLon,
		MaxLon: minLon + float64(r.Width)*sx,
		MaxLat: maxLat,
		MinLat: maxLat - float64(r.Height)*sy,
	}
}

func (p *parser) applyNoData(r *raster.Raster) {
	s, ok := p.asciiValue(TagType_GDALNoData)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return
	}
	r.NoData = &v
}

// readBands extracts per-band sample arrays from strip or tile chunks.
// Chunky (interleaved) layout only; unsupported structures return an error so
// the caller can try the image fallback.
func (p *parser) readBands(width, height int) ([][]float64, error) {
	spp := int(p.uintValue(TagType_SamplesPerPixel, 1))
	if spp < 1 {
		return nil, fmt.Errorf("invalid samples per pixel %d", spp)
	}

	if planar := p.uintValue(TagType_PlanarConfiguration, 1); planar != 1 {
		return nil, fmt.Errorf("unsupported planar configuration %d", planar)
	}

	compression := int(p.uintValue(TagType_Compression, CompressionNone))
	if compression != CompressionNone && compression != CompressionLZW {
		return nil, fmt.Errorf("unsupported compression %d", compression)
	}

	bitsValues, ok := p.uintValues(TagType_BitsPerSample)
	if !ok || len(bitsValues) == 0 {
		bitsValues = []uint64{1}
	}
	bits := int(bitsValues[0])
	for _, b := range bitsValues {
		if int(b) != bits {
			return nil, fmt.Errorf("mixed bits per sample")
		}
	}
	if bits != 8 && bits != 16 && bits != 32 && bits != 64 {
		return nil, fmt.Errorf("unsupported bits per sample %d", bits)
	}

	format := int(p.uintValue(TagType_SampleFormat, SampleFormatUint))
	if format != SampleFormatUint && format != SampleFormatInt && format != SampleFormatFloat {
		return nil, fmt.Errorf("unsupported sample format %d", format)
	}
	if format == SampleFormatFloat && bits != 32 && bits != 64 {
		return nil, fmt.Errorf("unsupported float sample width %d", bits)
	}

	predictor := int(p.uintValue(TagType_Predictor, 1))
	if predictor != 1 && predictor != 2 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
	if predictor == 2 && format == SampleFormatFloat {
		return nil, fmt.Errorf("horizontal predictor on float samples")
	}

	st := &sampleState{
		width:     width,
		height:    height,
		spp:       spp,
		bits:      bits,
		format:    format,
		predictor: predictor,
		bo:        p.bo,
		bands:     make([][]float64, spp),
	}
	for i := range st.bands {
		st.bands[i] = make([]float64, width*height)
	}

	if offsets, ok := p.uintValues(TagType_TileOffsets); ok {
		counts, ok := p.uintValues(TagType_TileByteCounts)
		if !ok || len(counts) != len(offsets) {
			return nil, fmt.Errorf("tile offsets and byte counts disagree")
		}
		tw := int(p.uintValue(TagType_TileWidth, 0))
		tl := int(p.uintValue(TagType_TileLength, 0))
		if tw <= 0 || tl <= 0 {
			return nil, fmt.Errorf("invalid tile size %dx%d", tw, tl)
		}

		tilesAcross := (width + tw - 1) / tw
		for i := range offsets {
			chunk, err := p.chunkData(offsets[i], counts[i], compression)
			if err != nil {
				return nil, err
			}
			rowStart := (i / tilesAcross) * tl
			colStart := (i % tilesAcross) * tw
			if err := st.fill(chunk, rowStart, colStart, tl, tw); err != nil {
				return nil, fmt.Errorf("tile %d: %w", i, err)
			}
		}
		return st.bands, nil
	}

	offsets, ok := p.uintValues(TagType_StripOffsets)
	if !ok {
		return nil, fmt.Errorf("no strip or tile offsets")
	}
	counts, ok := p.uintValues(TagType_StripByteCounts)
	if !ok || len(counts) != len(offsets) {
		return nil, fmt.Errorf("strip offsets and byte counts disagree")
	}

	rps := int(p.uintValue(TagType_RowsPerStrip, uint64(height)))
	if rps <= 0 || rps > height {
		rps = height
	}

	for i := range offsets {
		chunk, err := p.chunkData(offsets[i], counts[i], compression)
		if err != nil {
			return nil, err
		}
		rowStart := i * rps
		rows := rps
		if rowStart+rows > height {
			rows = height - rowStart
		}
		if rows <= 0 {
			return nil, fmt.Errorf("strip %d outside image", i)
		}
		if err := st.fill(chunk, rowStart, 0, rows, width); err != nil {
			return nil, fmt.Errorf("strip %d: %w", i, err)
		}
	}

	return st.bands, nil
}

// chunkData returns the decompressed bytes of one strip or tile.
func (p *parser) chunkData(offset, count uint64, compression int) ([]byte, error) {
	end := offset + count
	if end > uint64(len(p.data)) || end < offset {
		return nil, fmt.Errorf("chunk at %d+%d out of range", offset, count)
	}
	raw := p.data[offset:end]

	if compression == CompressionNone {
		return raw, nil
	}

	// TIFF LZW: MSB-first codes with the early code width change.
	rc := lzw.NewReader(bytes.NewReader(raw), true)
	defer rc.Close()
	return io.ReadAll(rc)
}

// sampleState accumulates decoded chunk data into per-band arrays.
type sampleState struct {
	width, height int
	spp           int
	bits          int
	format        int
	predictor     int
	bo            binary.ByteOrder
	bands         [][]float64
}

// fill copies one decoded chunk covering rows*cols pixels at (rowStart,
// colStart) into the band arrays, clipping edge tiles to the image extent.
func (st *sampleState) fill(chunk []byte, rowStart, colStart, rows, cols int) error {
	bps := st.bits / 8
	rowBytes := cols * st.spp * bps
	if len(chunk) < rows*rowBytes {
		// Strips of the final row block may be truncated to the image.
		if len(chunk)%rowBytes != 0 {
			return fmt.Errorf("chunk size %d not a row multiple", len(chunk))
		}
		rows = len(chunk) / rowBytes
	}

	mask := ^uint64(0)
	if st.bits < 64 {
		mask = (uint64(1) << st.bits) - 1
	}

	prev := make([]uint64, st.spp)
	for r := 0; r < rows; r++ {
		target := rowStart + r
		for i := range prev {
			prev[i] = 0
		}
		for c := 0; c < cols; c++ {
			for s := 0; s < st.spp; s++ {
				off := r*rowBytes + (c*st.spp+s)*bps
				v := st.rawSample(chunk[off:])
				if st.predictor == 2 {
					if c > 0 {
						v = (v + prev[s]) & mask
					}
					prev[s] = v
				}
				if target >= st.height || colStart+c >= st.width {
					continue
				}
				st.bands[s][target*st.width+colStart+c] = st.value(v)
			}
		}
	}

	return nil
}

func (st *sampleState) rawSample(buf []byte) uint64 {
	switch st.bits {
	case 8:
		return uint64(buf[0])
	case 16:
		return uint64(st.bo.Uint16(buf))
	case 32:
		return uint64(st.bo.Uint32(buf))
	default:
		return st.bo.Uint64(buf)
	}
}

func (st *sampleState) value(raw uint64) float64 {
	switch st.format {
	case SampleFormatFloat:
		if st.bits == 32 {
			return float64(math.Float32frombits(uint32(raw)))
		}
		return math.Float64frombits(raw)
	case SampleFormatInt:
		switch st.bits {
		case 8:
			return float64(int8(raw))
		case 16:
			return float64(int16(raw))
		case 32:
			return float64(int32(raw))
		default:
			return float64(int64(raw))
		}
	default:
		return float64(raw)
	}
}

// imageFallback decodes the body as a plain TIFF image and splits it into
// R, G, B bands scaled to 0-255.
func imageFallback(data []byte, width, height int) ([][]float64, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("image is %dx%d, IFD says %dx%d", b.Dx(), b.Dy(), width, height)
	}

	bands := make([][]float64, 3)
	for i := range bands {
		bands[i] = make([]float64, width*height)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			idx := y*width + x
			bands[0][idx] = float64(r >> 8)
			bands[1][idx] = float64(g >> 8)
			bands[2][idx] = float64(bl >> 8)
		}
	}

	return bands, nil
}
