// Package report summarizes an extraction inventory. Pure functions
// only; printing belongs to the caller.
package report

import (
	"sort"
	"strings"

	"github.com/MrSud0/Base64-to-Zip/internal/archive"
)

// DefaultKeywords flags filenames worth a second look during triage.
// Matched case-insensitively as substrings of the entry path.
var DefaultKeywords = []string{
	"key", "password", "secret", "flag", "token", "credential", ".pem", ".env",
}

// FileSize pairs an entry path with its size.
type FileSize struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Report is the summary of one extraction result.
type Report struct {
	Format      string     `json:"format"`
	TotalFiles  int        `json:"total_files"`
	TotalDirs   int        `json:"total_dirs"`
	Skipped     int        `json:"skipped"`
	TotalBytes  int64      `json:"total_bytes"`
	Files       []FileSize `json:"files"`
	Interesting []string   `json:"interesting,omitempty"`
	RarDetected bool       `json:"rar_detected,omitempty"`
}

// Summarize folds an extraction result into a Report. A nil keyword
// list selects DefaultKeywords; an empty one disables the heuristic.
func Summarize(res *archive.Result, keywords []string) Report {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	rep := Report{Format: res.Format.String(), RarDetected: res.RarDetected}
	for _, e := range res.Entries {
		switch {
		case e.Skipped:
			rep.Skipped++
		case e.Dir:
			rep.TotalDirs++
		default:
			rep.TotalFiles++
			rep.TotalBytes += e.Size
			rep.Files = append(rep.Files, FileSize{Path: e.Path, Size: e.Size})
			if matchesAny(e.Path, keywords) {
				rep.Interesting = append(rep.Interesting, e.Path)
			}
		}
	}
	sort.Slice(rep.Files, func(i, j int) bool { return rep.Files[i].Path < rep.Files[j].Path })
	sort.Strings(rep.Interesting)
	return rep
}

func matchesAny(path string, keywords []string) bool {
	lower := strings.ToLower(path)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
