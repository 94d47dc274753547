// Package geotiff reads and writes GeoTIFF rasters: baseline TIFF structure
// plus the ModelPixelScale/ModelTiepoint georeferencing tags. Decoding covers
// the band layouts the climate datasets use (single- and multi-band strip or
// tile chunks, uncompressed or LZW); anything else falls back to a plain
// image decode.
package geotiff

// TIFF field data types
const (
	DataType_Byte     = 1
	DataType_ASCII    = 2
	DataType_Short    = 3
	DataType_Long     = 4
	DataType_Rational = 5
	DataType_SByte    = 6
	DataType_SShort   = 8
	DataType_SLong    = 9
	DataType_Float    = 11
	DataType_Double   = 12
	DataType_IFD      = 13
)

// Baseline TIFF tags
const (
	TagType_ImageWidth                = 256
	TagType_ImageLength               = 257
	TagType_BitsPerSample             = 258
	TagType_Compression               = 259
	TagType_PhotometricInterpretation = 262
	TagType_StripOffsets              = 273
	TagType_SamplesPerPixel           = 277
	TagType_RowsPerStrip              = 278
	TagType_StripByteCounts           = 279
	TagType_XResolution               = 282
	TagType_YResolution               = 283
	TagType_PlanarConfiguration       = 284
	TagType_ResolutionUnit            = 296
	TagType_Predictor                 = 317
	TagType_TileWidth                 = 322
	TagType_TileLength                = 323
	TagType_TileOffsets               = 324
	TagType_TileByteCounts            = 325
	TagType_SampleFormat              = 339
)

// GeoTIFF and GDAL tags
const (
	TagType_ModelPixelScaleTag = 33550
	TagType_ModelTiepointTag   = 33922
	TagType_GeoKeyDirectoryTag = 34735
	TagType_GeoDoubleParamsTag = 34736
	TagType_GeoAsciiParamsTag  = 34737
	TagType_GDALNoData         = 42113
)

// Compression schemes handled natively
const (
	CompressionNone = 1
	CompressionLZW  = 5
)

// Sample formats
const (
	SampleFormatUint  = 1
	SampleFormatInt   = 2
	SampleFormatFloat = 3
)
