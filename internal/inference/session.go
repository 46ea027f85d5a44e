// Package inference wraps the ONNX Runtime environment and sessions.
package inference

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

var (
	initialized bool
	initMu      sync.Mutex
)

// ErrNotInitialized is returned by NewSession before Initialize
var ErrNotInitialized = errors.New("onnx runtime not initialized")

// DefaultLibraryPath returns the bundled runtime library for this platform
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "lib/libonnxruntime.dylib"
	case "windows":
		return "lib/onnxruntime.dll"
	default:
		return "lib/libonnxruntime.so"
	}
}

// Initialize loads the shared library and sets up the ONNX Runtime
// environment. Later calls are no-ops.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}
	if libraryPath == "" {
		libraryPath = DefaultLibraryPath()
	}
	ort.SetSharedLibraryPath(libraryPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime from %s: %w", libraryPath, err)
	}

	initialized = true
	return nil
}

// Initialized reports whether Initialize has succeeded
func Initialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized
}

// Shutdown cleans up ONNX Runtime environment
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// Session wraps an ONNX Runtime inference session
type Session struct {
	session     *ort.DynamicAdvancedSession
	modelPath   string
	inputNames  []string
	outputNames []string
}

// NewSession creates an inference session. On macOS the CoreML execution
// provider is tried first, everywhere else the session runs on CPU.
func NewSession(modelPath string, inputNames, outputNames []string, logger *zap.Logger) (*Session, error) {
	if !Initialized() {
		return nil, ErrNotInitialized
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	provider := "cpu"
	if runtime.GOOS == "darwin" {
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			logger.Warn("CoreML unavailable, using CPU", zap.String("model", modelPath), zap.Error(err))
		} else {
			provider = "coreml"
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}
	logger.Info("model loaded", zap.String("model", modelPath), zap.String("provider", provider))

	return &Session{
		session:     session,
		modelPath:   modelPath,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

// ModelPath returns the model file backing the session
func (s *Session) ModelPath() string {
	return s.modelPath
}

// Run executes inference with the given inputs
func (s *Session) Run(inputs []ort.Value, outputs []ort.Value) error {
	return s.session.Run(inputs, outputs)
}

// Destroy releases session resources
func (s *Session) Destroy() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}

// CreateEmptyTensor creates a zeroed tensor for output
func CreateEmptyTensor[T ort.TensorData](shape []int64) (*ort.Tensor[T], error) {
	size := int64(1)
	for _, dim := range shape {
		size *= dim
	}
	data := make([]T, size)
	return ort.NewTensor(ort.NewShape(shape...), data)
}

// MissingOutputs checks a model file for the named outputs and returns the
// ones it does not declare.
func MissingOutputs(modelPath string, names []string) ([]string, error) {
	_, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info for %s: %w", modelPath, err)
	}
	declared := make(map[string]bool, len(outputs))
	for _, info := range outputs {
		declared[info.Name] = true
	}
	var missing []string
	for _, n := range names {
		if !declared[n] {
			missing = append(missing, n)
		}
	}
	return missing, nil
}
