package qa

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"callqa/pkg/errors"
)

const episodeTimeLayout = "20060102_150405"

// ReadTranscript loads a transcript file. HTML exports (as produced by some
// call platforms) are reduced to their visible text; everything else is
// returned verbatim.
func ReadTranscript(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewValidationFailed("file path", fmt.Sprintf("cannot read %q: %v", path, err))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return extractHTMLText(raw)
	default:
		return string(raw), nil
	}
}

func extractHTMLText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", errors.NewValidationFailed("file content", fmt.Sprintf("cannot parse HTML: %v", err))
	}

	doc.Find("script, style, noscript").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return collapseWhitespace(text), nil
}

// collapseWhitespace trims every line and squeezes runs of blank lines so
// HTML-derived text reads like a plain transcript.
func collapseWhitespace(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// episodeName builds the unique name an uploaded transcript is stored under.
func episodeName(prefix, base string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s", prefix, base, now.Format(episodeTimeLayout))
}

// fileBase strips the directory and extension from a path.
func fileBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
