package annindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// encodeVector packs a []float32 into the little-endian raw byte layout
// sqlite-vec's vec0 "float[N]" columns expect.
func encodeVector(vec []float32) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*4))
	for _, v := range vec {
		if err := binary.Write(buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
			return nil, fmt.Errorf("annindex: write component: %w", err)
		}
	}
	return buf.Bytes(), nil
}
