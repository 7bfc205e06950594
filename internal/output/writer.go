package output

import (
	"encoding/json"
	"os"
	"path/filepath"

	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
)

// WriteArtifacts writes the three report files into dir, creating it if
// needed, and returns the paths written
func WriteArtifacts(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, gxperrors.FileSystemErrorf(err, "create artifacts directory %s", dir)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return gxperrors.FileSystemErrorf(err, "write %s", path)
		}
		written = append(written, path)
		return nil
	}

	matrix, err := marshal(BuildMatrix(r))
	if err != nil {
		return nil, err
	}
	if err := write(MatrixFile, matrix); err != nil {
		return written, err
	}

	gaps, err := marshal(BuildGapAnalysis(r))
	if err != nil {
		return written, err
	}
	if err := write(GapFile, gaps); err != nil {
		return written, err
	}

	if err := write(StatusFile, []byte(ComplianceStatus(r))); err != nil {
		return written, err
	}
	return written, nil
}

func marshal(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, gxperrors.InternalErrorf("encode report: %v", err)
	}
	return append(data, '\n'), nil
}
