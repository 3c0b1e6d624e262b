package renderer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/renderer/gputest"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
)

const visualizerShader = `#version 450
layout(local_size_x = 16, local_size_y = 16) in;

layout(binding = 0, set = 0, rgba32f) uniform writeonly image2D out_img;
layout(binding = 1, set = 0) uniform sampler2D out_img_prev;

layout(std430, binding = 0, set = 2) readonly buffer DFT { float mags[]; } dft;
layout(std140, binding = 1, set = 2) uniform Params {
    vec4 color;
    mat4 xf;
    float gain;
} params;

layout(push_constant) uniform PC {
    bool is_beat;
    float now;
} pc;

void main() {
    imageStore(out_img, ivec2(gl_GlobalInvocationID.xy), vec4(pc.now));
}
`

const plainShader = `#version 450
layout(local_size_x = 8, local_size_y = 8) in;
layout(binding = 0, rgba8) uniform image2D canvas;
layout(binding = 1) buffer Samples { float left[512]; float right[512]; } samples;
void main() {}
`

var testExtent = metadata.Extent{Width: 100, Height: 50}

func newDevice() *gputest.Device {
	return gputest.New(2, 3, testExtent)
}

func newProgram(t *testing.T, dev *gputest.Device, source string) *Program {
	t.Helper()
	refl, err := shader.Reflect("test.comp", source)
	require.NoError(t, err)
	p, err := NewProgram(dev, refl, []uint32{shader.SPIRVMagic})
	require.NoError(t, err)
	return p
}
