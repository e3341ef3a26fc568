package observability

import (
	"errors"
	"testing"
	"time"
)

type testJigsawHooks struct {
	NoopJigsawHooks
	connectors int
}

func (h *testJigsawHooks) OnConnector(string, int, int, int, int) { h.connectors++ }

type testUploadHooks struct {
	keys []string
}

func (h *testUploadHooks) OnUpload(key string, _ int64, _ error) { h.keys = append(h.keys, key) }

func TestNoopHooksDoNotPanic(t *testing.T) {
	j := NoopJigsawHooks{}
	j.OnBuildComplete(4, time.Second)
	j.OnConnector("vertical", 1, 0, 0, 0)
	j.OnPieceSaved(0, 0)
	j.OnSaveComplete(4, time.Second, errors.New("disk full"))

	u := NoopUploadHooks{}
	u.OnUpload("job1/0x0.png", 1024, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Jigsaw().(NoopJigsawHooks); !ok {
		t.Error("Jigsaw() should return NoopJigsawHooks by default")
	}
	if _, ok := Upload().(NoopUploadHooks); !ok {
		t.Error("Upload() should return NoopUploadHooks by default")
	}

	jh := &testJigsawHooks{}
	SetJigsawHooks(jh)
	Jigsaw().OnConnector("horizontal", 0, 1, 0, 0)
	if jh.connectors != 1 {
		t.Errorf("connectors = %d, want 1", jh.connectors)
	}

	uh := &testUploadHooks{}
	SetUploadHooks(uh)
	Upload().OnUpload("a.png", 1, nil)
	if len(uh.keys) != 1 || uh.keys[0] != "a.png" {
		t.Errorf("keys = %v, want [a.png]", uh.keys)
	}

	SetJigsawHooks(nil)
	if Jigsaw() != jh {
		t.Error("SetJigsawHooks(nil) should keep the registered hooks")
	}

	Reset()
	if _, ok := Jigsaw().(NoopJigsawHooks); !ok {
		t.Error("Reset() should restore NoopJigsawHooks")
	}
}
