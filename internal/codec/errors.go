package codec

import "errors"

// ErrCorrupt wraps any failure to parse a zlib stream this package produced.
var ErrCorrupt = errors.New("codec: corrupt compressed object")
