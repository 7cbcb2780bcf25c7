package util

import (
	"errors"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// SanitizeFolderPath validates a caller-preserved folder path. Each segment
// must be a plain name: no traversal, no absolute-path markers, no empties.
func SanitizeFolderPath(folderPath string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(folderPath), "/")
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(folderPath, "/") || strings.HasPrefix(folderPath, "\\") {
		return "", errors.New("invalid folder path")
	}
	segments := strings.Split(strings.ReplaceAll(trimmed, "\\", "/"), "/")
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, "..") {
			return "", errors.New("invalid folder path")
		}
	}
	return strings.Join(segments, "/"), nil
}
