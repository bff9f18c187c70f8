package classifier

import (
	"errors"
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend abstracts the inference runtime so orchestration never touches the
// concrete library.
type Backend interface {
	LoadModel(path string) (Session, error)
}

// Session is one loaded model exposing a single forward-pass capability.
type Session interface {
	// InputDims reports the model's declared input dimensions. Symbolic or
	// unknown dimensions appear as -1 and must not be trusted blindly.
	InputDims() []int64
	// Run executes one forward pass over a single-image tensor laid out
	// according to mode and returns the per-label probability vector.
	Run(tensor []float32, size int, mode LayoutMode) ([]float32, error)
}

// NewONNXBackend returns the onnxruntime-backed Backend. The caller is
// responsible for having initialized the onnxruntime environment.
func NewONNXBackend() Backend {
	return ortBackend{}
}

type ortBackend struct{}

func (ortBackend) LoadModel(path string) (Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model declares no inputs or outputs")
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}

	return &ortSession{session: session, dims: inputs[0].Dimensions}, nil
}

type ortSession struct {
	session *ort.DynamicAdvancedSession
	dims    []int64
}

func (s *ortSession) InputDims() []int64 {
	return s.dims
}

func (s *ortSession) Run(tensor []float32, size int, mode LayoutMode) ([]float32, error) {
	var shape ort.Shape
	if mode == ChannelsLast {
		shape = ort.NewShape(1, int64(size), int64(size), 3)
	} else {
		shape = ort.NewShape(1, 3, int64(size), int64(size))
	}

	input, err := ort.NewTensor(shape, tensor)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, err
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected output tensor type")
	}
	defer out.Destroy()

	// the model emits logits
	logits := out.GetData()
	probs := make([]float32, len(logits))
	for i, v := range logits {
		probs[i] = sigmoid(v)
	}
	return probs, nil
}

func sigmoid(x float32) float32 {
	if x > 50 {
		x = 50
	} else if x < -50 {
		x = -50
	}
	return 1 / (1 + float32(math.Exp(float64(-x))))
}
