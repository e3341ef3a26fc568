// Package observability lets binaries attach metrics backends to the
// jigsaw and transport packages without those packages importing them.
//
// Hooks are registered once by main:
//
//	observability.SetJigsawHooks(metrics.NewRecorder(reg))
//
// and libraries emit events through the registered set:
//
//	observability.Jigsaw().OnConnector(edge, donor, receiver)
package observability

import (
	"sync"
	"time"
)

// JigsawHooks receives events from grid building, connecting and saving.
// Positions are passed as column, row pairs.
type JigsawHooks interface {
	OnBuildComplete(pieces int, duration time.Duration)
	OnConnector(edge string, donorX, donorY, receiverX, receiverY int)
	OnPieceSaved(x, y int)
	OnSaveComplete(pieces int, duration time.Duration, err error)
}

// UploadHooks receives events from object storage uploads.
type UploadHooks interface {
	OnUpload(key string, size int64, err error)
}

// NoopJigsawHooks is a no-op implementation of JigsawHooks.
type NoopJigsawHooks struct{}

func (NoopJigsawHooks) OnBuildComplete(int, time.Duration)       {}
func (NoopJigsawHooks) OnConnector(string, int, int, int, int)   {}
func (NoopJigsawHooks) OnPieceSaved(int, int)                    {}
func (NoopJigsawHooks) OnSaveComplete(int, time.Duration, error) {}

// NoopUploadHooks is a no-op implementation of UploadHooks.
type NoopUploadHooks struct{}

func (NoopUploadHooks) OnUpload(string, int64, error) {}

var (
	jigsawHooks JigsawHooks = NoopJigsawHooks{}
	uploadHooks UploadHooks = NoopUploadHooks{}
	hooksMu     sync.RWMutex
)

// SetJigsawHooks registers h. A nil h is ignored.
func SetJigsawHooks(h JigsawHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		jigsawHooks = h
	}
}

// SetUploadHooks registers h. A nil h is ignored.
func SetUploadHooks(h UploadHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		uploadHooks = h
	}
}

// Jigsaw returns the registered jigsaw hooks.
func Jigsaw() JigsawHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return jigsawHooks
}

// Upload returns the registered upload hooks.
func Upload() UploadHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return uploadHooks
}

// Reset restores the no-op defaults. Used by tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	jigsawHooks = NoopJigsawHooks{}
	uploadHooks = NoopUploadHooks{}
}
