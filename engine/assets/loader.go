package assets

import "github.com/spaghettifunk/spectra/engine/assets/loaders"

type Loader interface {
	Load(path string) (*loaders.Asset, error)
}
