package metadata

/** @brief The pixel format of an image resource. */
type ImageFormat uint32

const (
	ImageFormatUndefined ImageFormat = iota
	ImageFormatRGBA8Unorm
	ImageFormatRGBA8Snorm
	ImageFormatRGBA16Float
	ImageFormatRGBA32Float
	ImageFormatRG16Float
	ImageFormatRG32Float
	ImageFormatR16Float
	ImageFormatR32Float
	ImageFormatR32Uint
	ImageFormatR32Sint
	ImageFormatRGBA32Uint
	ImageFormatBGRA8Unorm
)

var glslImageFormats = map[string]ImageFormat{
	"rgba8":       ImageFormatRGBA8Unorm,
	"rgba8_snorm": ImageFormatRGBA8Snorm,
	"rgba16f":     ImageFormatRGBA16Float,
	"rgba32f":     ImageFormatRGBA32Float,
	"rg16f":       ImageFormatRG16Float,
	"rg32f":       ImageFormatRG32Float,
	"r16f":        ImageFormatR16Float,
	"r32f":        ImageFormatR32Float,
	"r32ui":       ImageFormatR32Uint,
	"r32i":        ImageFormatR32Sint,
	"rgba32ui":    ImageFormatRGBA32Uint,
}

// ParseImageFormat maps a GLSL image format layout qualifier to a format.
// An empty qualifier defaults to RGBA8.
func ParseImageFormat(glsl string) (ImageFormat, bool) {
	if glsl == "" {
		return ImageFormatRGBA8Unorm, true
	}
	f, ok := glslImageFormats[glsl]
	return f, ok
}

/** @brief Bytes per texel, 0 for undefined formats. */
func (f ImageFormat) TexelSize() uint64 {
	switch f {
	case ImageFormatRGBA8Unorm, ImageFormatRGBA8Snorm, ImageFormatBGRA8Unorm,
		ImageFormatRG16Float, ImageFormatR32Float, ImageFormatR32Uint, ImageFormatR32Sint:
		return 4
	case ImageFormatR16Float:
		return 2
	case ImageFormatRGBA16Float, ImageFormatRG32Float:
		return 8
	case ImageFormatRGBA32Float, ImageFormatRGBA32Uint:
		return 16
	}
	return 0
}

/** @brief How an image is going to be used. */
type ImageUsage uint32

const (
	ImageUsageStorage ImageUsage = 1 << iota
	ImageUsageSampled
	ImageUsageTransferSrc
	ImageUsageTransferDst
)
