package layout

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/spectra/engine/shader"
)

// Kind is the resource kind a declaration binds as.
type Kind uint8

const (
	KindUnsupported Kind = iota
	KindStorageImage
	KindSampledImage
	KindCombinedImageSampler
	KindSampler
	KindUniformBuffer
	KindStorageBuffer
	KindPushConstant
)

var kindNames = [...]string{
	KindUnsupported:          "unsupported",
	KindStorageImage:         "storage image",
	KindSampledImage:         "sampled image",
	KindCombinedImageSampler: "combined image sampler",
	KindSampler:              "sampler",
	KindUniformBuffer:        "uniform buffer",
	KindStorageBuffer:        "storage buffer",
	KindPushConstant:         "push constant",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsDescriptor reports whether the kind occupies a descriptor slot.
func (k Kind) IsDescriptor() bool {
	return k != KindUnsupported && k != KindPushConstant
}

// IsImage reports whether the kind is backed by an image resource.
func (k Kind) IsImage() bool {
	return k == KindStorageImage || k == KindSampledImage || k == KindCombinedImageSampler
}

// IsBuffer reports whether the kind is backed by a buffer resource.
func (k Kind) IsBuffer() bool {
	return k == KindUniformBuffer || k == KindStorageBuffer
}

// ImageKind resolves the element type of a uniform variable. Integer
// variants (isampler2D, uimage2D, ...) resolve like their float forms.
func ImageKind(typ string) Kind {
	if typ == "sampler" || typ == "samplerShadow" {
		return KindSampler
	}
	for _, prefix := range []string{"", "i", "u"} {
		if !strings.HasPrefix(typ, prefix) {
			continue
		}
		base := typ[len(prefix):]
		switch {
		case hasSuffixAfter(base, "sampler") && base != "samplerShadow":
			return KindCombinedImageSampler
		case hasSuffixAfter(base, "image"):
			return KindStorageImage
		case hasSuffixAfter(base, "texture"):
			return KindSampledImage
		}
	}
	return KindUnsupported
}

// hasSuffixAfter reports whether s is prefix followed by a dimension suffix.
func hasSuffixAfter(s, prefix string) bool {
	return len(s) > len(prefix) && strings.HasPrefix(s, prefix)
}

// BlockKind resolves the storage class of an interface block.
func BlockKind(s shader.StorageClass) Kind {
	switch s {
	case shader.StorageUniform:
		return KindUniformBuffer
	case shader.StorageBuffer:
		return KindStorageBuffer
	case shader.StoragePushConstant:
		return KindPushConstant
	}
	return KindUnsupported
}
