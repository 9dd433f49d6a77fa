// Package mixpack implements a context-mixing compressor for small,
// text-like payloads such as minified program source. An adaptive set of
// sparse context models is blended by a logistic mixer and drives a binary
// rANS coder bit by bit. A parameter optimizer searches the model
// configuration per input to minimize the size reported by an external
// oracle, typically the length of the output after a further DEFLATE pass.
//
// The package provides the reference semantics of the bitstream. Any
// accelerated reimplementation of the model must reproduce the (state, buf)
// output of Compress bit for bit.
//
// Compress and Decompress carry no checksum and no header. The caller must
// construct the decompression model from the exact Params record used for
// compression; the format trades all redundancy for size.
package mixpack
