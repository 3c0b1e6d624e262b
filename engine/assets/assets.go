package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/spectra/engine/assets/loaders"
	"github.com/spaghettifunk/spectra/engine/core"
)

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeShaderSource
	AssetTypeSPIRV
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeShaderSource:
		return "shader source"
	case AssetTypeSPIRV:
		return "spir-v"
	}
	return "none"
}

type AssetInfo struct {
	Path     string
	Type     AssetType
	Modified time.Time
}

// changeBuffer bounds the reload requests queued between two frames.
// Requests beyond it are dropped; the consumer coalesces by path anyway.
const changeBuffer = 16

var ErrClosed = errors.New("asset manager already closed")

// AssetManager indexes the shader files under a directory and reports
// modifications. The watcher runs on its own goroutine and only hands paths
// over through Changes.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[AssetType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	started  bool
	changes  chan string
	wg       sync.WaitGroup
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[AssetType]Loader),
		fsnotify: fsWatch,
		changes:  make(chan string, changeBuffer),
		done:     make(chan struct{}),
	}
	am.registerLoader(AssetTypeShaderSource, &loaders.ShaderLoader{})
	am.registerLoader(AssetTypeSPIRV, &loaders.BinaryLoader{})
	return am, nil
}

// Initialize indexes dir recursively and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	dir, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	if err := am.addRecursive(dir); err != nil {
		return err
	}

	am.started = true
	am.wg.Add(1)
	go am.start()
	core.LogDebug("watching %d shader assets under %s", am.Len(), dir)
	return nil
}

// Changes delivers the absolute path of every shader asset written or
// created after Initialize.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return ErrClosed
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset reads path with the loader of its type. Files outside the
// watched directory are loaded too; they are just not reported by Changes.
func (am *AssetManager) LoadAsset(path string) (*loaders.Asset, error) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return nil, fmt.Errorf("no loader for asset %s", path)
	}
	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for asset type: %s", assetType)
	}
	return loader.Load(path)
}

// Get returns the index entry of an absolute path.
func (am *AssetManager) Get(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

// Assets returns the indexed assets sorted by path.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	am.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Shutdown stops the watcher goroutine and closes Changes.
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if !am.started {
		close(am.changes)
		return am.fsnotify.Close()
	}
	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogWarn("failed to watch new directory %s: %s", e.Name, err)
			}
		}
		return
	}

	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if am.handleFileEvent(e.Name) {
			am.notify(e.Name)
		}
	}
	// Can't stat a deleted path, so drop it from the index and the watch
	// list whatever it was.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

func (am *AssetManager) notify(path string) {
	select {
	case am.changes <- path:
	default:
		core.LogWarn("reload queue full, dropping change of %s", path)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
// Files created before the watch is in place are indexed by the walk.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes a created or modified file and reports whether it
// is an asset.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return false
	}

	modified := time.Now()
	if s, err := os.Stat(path); err == nil {
		modified = s.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:     path,
		Type:     assetType,
		Modified: modified,
	}
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".comp", ".glsl":
		return AssetTypeShaderSource
	case ".spv":
		return AssetTypeSPIRV
	default:
		return AssetTypeNone
	}
}
