//go:build wasmedge

package filter

import (
	"fmt"
	"image"
	"sync"

	"github.com/second-state/WasmEdge-go/wasmedge"
)

var loadPlugins sync.Once

// Pool applies one wasm filter with a fixed set of VMs. Each VM serves one
// piece at a time.
type Pool struct {
	vms  []*wasmedge.VM
	free chan *wasmedge.VM
}

// Open instantiates workers VMs running the module at wasmPath.
func Open(wasmPath string, workers int) (*Pool, error) {
	if workers < 1 {
		workers = 1
	}
	loadPlugins.Do(func() {
		wasmedge.SetLogErrorLevel()
		wasmedge.LoadPluginDefaultPaths()
	})

	p := &Pool{free: make(chan *wasmedge.VM, workers)}
	for i := 0; i < workers; i++ {
		vm, err := newVM(wasmPath)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.vms = append(p.vms, vm)
		p.free <- vm
	}
	return p, nil
}

func newVM(wasmPath string) (*wasmedge.VM, error) {
	conf := wasmedge.NewConfigure(wasmedge.WASI)
	defer conf.Release()
	vm := wasmedge.NewVMWithConfig(conf)
	if err := vm.LoadWasmFile(wasmPath); err != nil {
		vm.Release()
		return nil, fmt.Errorf("load %s: %w", wasmPath, err)
	}
	if err := vm.Validate(); err != nil {
		vm.Release()
		return nil, fmt.Errorf("validate %s: %w", wasmPath, err)
	}
	if err := vm.Instantiate(); err != nil {
		vm.Release()
		return nil, fmt.Errorf("instantiate %s: %w", wasmPath, err)
	}
	return vm, nil
}

// Apply runs the filter over img on the next free VM.
func (p *Pool) Apply(img image.Image) (image.Image, error) {
	vm := <-p.free
	defer func() { p.free <- vm }()
	return run(vm, img)
}

// Close releases every VM.
func (p *Pool) Close() {
	for _, vm := range p.vms {
		vm.Release()
	}
	p.vms = nil
}

func run(vm *wasmedge.VM, img image.Image) (image.Image, error) {
	inBytes, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	inLen := int32(len(inBytes))

	allocRes, err := vm.Execute("alloc", inLen)
	if err != nil {
		return nil, fmt.Errorf("alloc input: %w", err)
	}
	inPtr := allocRes[0].(int32)
	defer vm.Execute("dealloc", inPtr, inLen)

	mem := vm.GetActiveModule().FindMemory("memory")
	if mem == nil {
		return nil, fmt.Errorf("module exports no memory")
	}
	inData, err := mem.GetData(uint(inPtr), uint(inLen))
	if err != nil {
		return nil, fmt.Errorf("mem input: %w", err)
	}
	copy(inData, inBytes)

	paramsRes, err := vm.Execute("alloc", int32(8))
	if err != nil {
		return nil, fmt.Errorf("alloc params: %w", err)
	}
	paramsPtr := paramsRes[0].(int32)
	defer vm.Execute("dealloc", paramsPtr, int32(8))

	lenRes, err := vm.Execute(entry, inPtr, inLen, paramsPtr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry, err)
	}
	if lenRes[0].(int32) == 0 {
		return nil, fmt.Errorf("zero length output")
	}

	paramBytes, err := mem.GetData(uint(paramsPtr), 8)
	if err != nil {
		return nil, fmt.Errorf("mem params: %w", err)
	}
	outPtr, outLen, err := decodeParams(paramBytes)
	if err != nil {
		return nil, err
	}
	defer vm.Execute("dealloc", outPtr, outLen)

	outData, err := mem.GetData(uint(outPtr), uint(outLen))
	if err != nil {
		return nil, fmt.Errorf("mem output: %w", err)
	}
	outBytes := make([]byte, outLen)
	copy(outBytes, outData)
	return decodePNG(outBytes)
}
