package intake

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DetectMediaType returns declared when set, otherwise sniffs data and finally falls back to
// the file extension.
func DetectMediaType(name string, data []byte, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
		return strings.ToLower(declared)
	}
	if len(data) > 0 {
		sniffed := http.DetectContentType(data)
		if mt, _, err := mime.ParseMediaType(sniffed); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	}
	return "application/octet-stream"
}

func IsImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// FromPaths reads files from disk. Directories and unreadable paths fail the whole call so the
// user sees which path was wrong before anything is added.
func FromPaths(paths []string) ([]RawFile, error) {
	out := make([]RawFile, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			return nil, fmt.Errorf("%s: is a directory", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, RawFile{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

// SplitPaths splits pasted input into paths. Terminals paste dropped files as
// space-separated, optionally quoted or backslash-escaped paths.
func SplitPaths(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
		esc   bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case esc:
			cur.WriteRune(r)
			esc = false
		case r == '\\' && quote != '\'':
			esc = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
