package inference

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLibraryPath(t *testing.T) {
	p := DefaultLibraryPath()
	assert.True(t, strings.HasPrefix(p, "lib/"))
	if runtime.GOOS == "linux" {
		assert.Equal(t, "lib/libonnxruntime.so", p)
	}
}

func TestNewSessionRequiresInitialize(t *testing.T) {
	if Initialized() {
		t.Skip("runtime already initialized")
	}
	_, err := NewSession("model.onnx", []string{"in"}, []string{"out"}, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}
