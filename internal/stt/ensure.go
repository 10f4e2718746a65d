package stt

import (
	"context"
	"fmt"
	"log/slog"

	"whisperd/internal/download"
)

var downloadFile = download.DownloadFile

// EnsureModel resolves modelRef under modelDir and downloads the weights when
// they are missing. Files with pinned checksums are verified first, so a
// corrupt or truncated download gets replaced instead of crashing the engine.
func EnsureModel(ctx context.Context, modelRef, modelDir string, autoDownload bool, logger *slog.Logger) (ResolvedModel, error) {
	resolved, err := ResolveModel(modelRef, modelDir)
	if err != nil {
		return ResolvedModel{}, err
	}

	if !resolved.NeedsDownload && resolved.SHA256 != "" {
		if err := download.VerifyFileChecksum(resolved.Path, resolved.SHA256); err != nil {
			logger.Warn("model failed checksum verification, fetching a fresh copy",
				"model", resolved.Name, "error", err)
			resolved.NeedsDownload = true
		}
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !autoDownload {
		return ResolvedModel{}, fmt.Errorf(
			"model %q is not usable at %s; set MODEL_AUTO_DOWNLOAD=true or place the file there",
			resolved.Name, resolved.Path)
	}

	logger.Info("downloading model",
		"model", resolved.Name, "size", resolved.SizeLabel, "destination", resolved.Path)
	if err := downloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		Logger:         logger,
	}); err != nil {
		return ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}
