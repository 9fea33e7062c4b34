// Package imagecodec decodes camera files into linear float pixel buffers and
// encodes processed results back to disk.
//
// Standard formats (JPEG, PNG, TIFF) decode at their native bit depth; RAW
// mosaics (DNG/raw TIFF containers and binary PGM) are demosaiced from an
// RGGB Bayer pattern with bilinear interpolation. All samples are normalized
// to [0,1] so the adjustment engine never needs to care about source depth.
package imagecodec
