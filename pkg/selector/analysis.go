package selector

import (
	"bufio"
	"io/fs"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	// AnalysisDir is where git filter-repo --analyze writes its reports
	AnalysisDir = ".git/filter-repo/analysis"
	// AllSizesReport lists every path that ever existed in the history
	AllSizesReport = AnalysisDir + "/path-all-sizes.txt"
	// DeletedSizesReport lists paths that no longer exist on the current branch
	DeletedSizesReport = AnalysisDir + "/path-deleted-sizes.txt"

	reportHeaderLines = 2
)

// 📖 ReadAnalysis collects the paths listed in filter-repo analysis reports.
// The first two lines of a report are headers and the path is the last
// field of every other line. The result is sorted and unique.
func ReadAnalysis(fsys fs.FS, reports ...string) ([]string, error) {
	if len(reports) == 0 {
		reports = []string{AllSizesReport, DeletedSizesReport}
	}

	seen := map[string]bool{}
	for _, name := range reports {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, errors.Errorf("opening analysis report %s: %w", name, err)
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			if line <= reportHeaderLines {
				continue
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			seen[fields[len(fields)-1]] = true
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, errors.Errorf("reading analysis report %s: %w", name, err)
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
