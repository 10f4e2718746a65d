package stt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "base"

// ModelInfo describes one entry of the fixed ggml model catalog. Checksums
// are pinned only for the models whisper.cpp publishes sums for.
type ModelInfo struct {
	Name      string
	FileName  string
	URL       string
	SHA256    string
	SizeLabel string
}

// EnglishOnly reports whether the model transcribes English exclusively.
func (m ModelInfo) EnglishOnly() bool {
	return strings.HasSuffix(m.Name, ".en")
}

// ResolvedModel is the outcome of mapping a model reference onto the local
// filesystem.
type ResolvedModel struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	SizeLabel     string
	NeedsDownload bool
	IsCustomPath  bool
}

var modelCatalog = map[string]ModelInfo{
	"tiny": {
		Name:      "tiny",
		FileName:  "ggml-tiny.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:    "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
		SizeLabel: "~75 MB",
	},
	"tiny.en": {
		Name:      "tiny.en",
		FileName:  "ggml-tiny.en.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
		SizeLabel: "~75 MB",
	},
	"base": {
		Name:      "base",
		FileName:  "ggml-base.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:    "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
		SizeLabel: "~142 MB",
	},
	"base.en": {
		Name:      "base.en",
		FileName:  "ggml-base.en.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
		SizeLabel: "~142 MB",
	},
	"small": {
		Name:      "small",
		FileName:  "ggml-small.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:    "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
		SizeLabel: "~466 MB",
	},
	"small.en": {
		Name:      "small.en",
		FileName:  "ggml-small.en.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.en.bin",
		SizeLabel: "~466 MB",
	},
	"medium": {
		Name:      "medium",
		FileName:  "ggml-medium.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:    "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
		SizeLabel: "~1.5 GB",
	},
	"medium.en": {
		Name:      "medium.en",
		FileName:  "ggml-medium.en.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.en.bin",
		SizeLabel: "~1.5 GB",
	},
	"large-v2": {
		Name:      "large-v2",
		FileName:  "ggml-large-v2.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v2.bin",
		SizeLabel: "~2.9 GB",
	},
	"large-v3": {
		Name:      "large-v3",
		FileName:  "ggml-large-v3.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:    "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
		SizeLabel: "~2.9 GB",
	},
	"large-v3-turbo": {
		Name:      "large-v3-turbo",
		FileName:  "ggml-large-v3-turbo.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
		SizeLabel: "~1.6 GB",
	},
}

// modelAliases maps the names the original openai-whisper deployment accepted
// onto their current catalog entries.
var modelAliases = map[string]string{
	"large": "large-v3",
}

// ModelNames returns the documented model names, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(modelCatalog))
	for name := range modelCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupModel finds a catalog entry by name or alias.
func LookupModel(name string) (ModelInfo, bool) {
	if target, ok := modelAliases[name]; ok {
		name = target
	}
	model, ok := modelCatalog[name]
	return model, ok
}

// ResolveModel maps a model reference (catalog name, alias, or filesystem
// path to a ggml file) onto a local path, reporting whether a download is
// required first.
func ResolveModel(modelRef, modelDir string) (ResolvedModel, error) {
	if strings.TrimSpace(modelRef) == "" {
		modelRef = DefaultModel
	}

	if model, ok := LookupModel(modelRef); ok {
		if strings.TrimSpace(modelDir) == "" {
			return ResolvedModel{}, errors.New("model directory must not be empty for named model")
		}

		modelPath := filepath.Join(modelDir, model.FileName)
		_, statErr := os.Stat(modelPath)
		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("stat model path: %w", statErr)
		}

		return ResolvedModel{
			Name:          model.Name,
			Path:          modelPath,
			URL:           model.URL,
			SHA256:        model.SHA256,
			SizeLabel:     model.SizeLabel,
			NeedsDownload: errors.Is(statErr, os.ErrNotExist),
		}, nil
	}

	if !looksLikePath(modelRef) {
		return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", modelRef, strings.Join(ModelNames(), ", "))
	}

	customPath := filepath.Clean(modelRef)
	if _, err := os.Stat(customPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", customPath)
		}
		return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
	}

	return ResolvedModel{
		Name:         filepath.Base(customPath),
		Path:         customPath,
		IsCustomPath: true,
	}, nil
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.HasSuffix(strings.ToLower(input), ".bin")
}
