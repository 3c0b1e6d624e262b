package shader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSPIRV(t *testing.T) {
	little := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	words, err := DecodeSPIRV(little)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010000}, words)

	big := []byte{0x07, 0x23, 0x02, 0x03, 0x00, 0x01, 0x00, 0x00}
	words, err = DecodeSPIRV(big)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010000}, words)
}

func TestDecodeSPIRVErrors(t *testing.T) {
	for _, code := range [][]byte{
		nil,
		{0x03, 0x02, 0x23},
		{0x03, 0x02, 0x23, 0x07, 0x00},
		{0xde, 0xad, 0xbe, 0xef},
	} {
		_, err := DecodeSPIRV(code)
		assert.True(t, errors.Is(err, ErrInvalidSPIRV), "%v", code)
	}
}
