package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V")

// DecodeSPIRV converts a SPIR-V binary into words, detecting its endianness
// from the magic number.
func DecodeSPIRV(code []byte) ([]uint32, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a positive multiple of 4", ErrInvalidSPIRV, len(code))
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(code) == SPIRVMagic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(code) == SPIRVMagic:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad magic number 0x%08x", ErrInvalidSPIRV, binary.LittleEndian.Uint32(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = order.Uint32(code[i*4:])
	}
	return words, nil
}
