// Package aegisguard runs a local ONNX classifier as a detector family:
// policies that want an in-process semantic signal without a network round
// trip point a model rule at one of its labels.
package aegisguard

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// GuardResult captures the raw per-label scores of one inference run.
type GuardResult struct {
	Scores map[string]float32 `json:"scores"`
}

// GuardModel wraps the ONNX session and tokenizer. The session buffers are
// reused across calls, so Evaluate serializes on an internal mutex.
type GuardModel struct {
	session   *ort.AdvancedSession
	tokenizer *WordPieceTokenizer
	labels    []string
	seqLen    int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadModel initializes the ONNX session and tokenizer from a bundle
// directory holding aegisguard.onnx, label_map.json and tokenizer/vocab.txt.
func LoadModel(bundleDir string, seqLen int) (*GuardModel, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}
	if seqLen <= 0 {
		seqLen = 256
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, "aegisguard.onnx")
	labelsPath := filepath.Join(bundleDir, "label_map.json")
	vocabPath := filepath.Join(bundleDir, "tokenizer", "vocab.txt")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	tokenizer, err := LoadWordPieceTokenizer(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(len(labels)))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &GuardModel{
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		seqLen:        seqLen,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Close releases the ONNX session and its tensors.
func (m *GuardModel) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.inputIDs != nil {
		m.inputIDs.Destroy()
		m.inputIDs = nil
	}
	if m.attentionMask != nil {
		m.attentionMask.Destroy()
		m.attentionMask = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
}

// Evaluate runs inference on the combined system + user text and returns the
// sigmoid score for every label.
func (m *GuardModel) Evaluate(systemPrompt, userText string) (*GuardResult, error) {
	if m == nil || m.session == nil || m.tokenizer == nil {
		return nil, errors.New("guard model not initialized")
	}

	combined := buildInputText(systemPrompt, userText)
	inputIDs, attn := m.tokenizer.Encode(combined, m.seqLen)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputIDs.GetData(), inputIDs)
	copy(m.attentionMask.GetData(), attn)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	raw := m.output.GetData()
	scores := make(map[string]float32, len(m.labels))
	for i, logit := range raw {
		if i >= len(m.labels) {
			break
		}
		scores[m.labels[i]] = float32(1.0 / (1.0 + math.Exp(-float64(logit))))
	}

	return &GuardResult{Scores: scores}, nil
}

func buildInputText(systemPrompt, userText string) string {
	if systemPrompt == "" {
		return "[USER]\n" + userText
	}
	return "[SYSTEM]\n" + systemPrompt + "\n[USER]\n" + userText
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath attempts to locate a platform-specific
// onnxruntime shared library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins when set.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
