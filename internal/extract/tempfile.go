package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempFile is a document staged on disk for strategies that shell out to
// external binaries (poppler needs a file path, not bytes).
type TempFile struct {
	Dir  string
	Path string
}

func (t TempFile) Cleanup() {
	if t.Dir != "" {
		_ = os.RemoveAll(t.Dir)
	}
}

// WriteTemp stages data under a fresh temp directory. Callers must Cleanup.
func WriteTemp(data []byte, fileName string) (TempFile, error) {
	tmpDir, err := os.MkdirTemp("", "docsumm-*")
	if err != nil {
		return TempFile{}, fmt.Errorf("temp dir: %w", err)
	}

	safeName := strings.TrimSpace(fileName)
	if safeName == "" {
		safeName = "input.bin"
	}
	outPath := filepath.Join(tmpDir, filepath.Base(safeName))

	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		_ = os.RemoveAll(tmpDir)
		return TempFile{}, fmt.Errorf("write: %w", err)
	}

	return TempFile{Dir: tmpDir, Path: outPath}, nil
}
