package frontier

import (
	"bufio"
	"crypto/md5" //nolint:gosec // content-addressed sharding, not a security use
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arlobridge/crawlcore/internal/domain"
)

// filePathForDomain returns the on-disk path of a domain's frontier
// file, sharded into 256 subdirectories by the first byte of
// md5(domain) to keep any one directory's entry count manageable.
func filePathForDomain(dataDir, d string) string {
	sum := md5.Sum([]byte(d)) //nolint:gosec
	shard := hex.EncodeToString(sum[:1])

	return filepath.Join(dataDir, "frontiers", shard, d+".frontier")
}

// appendEntries opens (creating if absent) the domain's frontier file
// and appends each entry as "url|depth\n". Returns the file's total
// size in bytes after the append.
func appendEntries(filePath string, entries []domain.FrontierEntry) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return 0, fmt.Errorf("frontier: mkdir for %s: %w", filePath, err)
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("frontier: open %s: %w", filePath, err)
	}
	defer f.Close()

	for _, entry := range entries {
		line := entry.URL + "|" + strconv.Itoa(entry.Depth) + "\n"
		if _, writeErr := f.WriteString(line); writeErr != nil {
			return 0, fmt.Errorf("frontier: append to %s: %w", filePath, writeErr)
		}
	}

	info, statErr := f.Stat()
	if statErr != nil {
		return 0, fmt.Errorf("frontier: stat %s: %w", filePath, statErr)
	}

	return info.Size(), nil
}

// readNextEntry reads forward from offset looking for the first line
// whose URL is not filtered by the non-text extension set. It returns
// the entry found (if any), the offset to resume from next time
// (always advanced past every line it examined, including skipped
// ones and the hit itself), and whether a usable entry was found.
func readNextEntry(filePath string, offset, size int64) (entry domain.FrontierEntry, newOffset int64, found bool, err error) {
	if offset >= size {
		return domain.FrontierEntry{}, offset, false, nil
	}

	f, openErr := os.Open(filePath)
	if openErr != nil {
		return domain.FrontierEntry{}, offset, false, fmt.Errorf("frontier: open %s: %w", filePath, openErr)
	}
	defer f.Close()

	if _, seekErr := f.Seek(offset, io.SeekStart); seekErr != nil {
		return domain.FrontierEntry{}, offset, false, fmt.Errorf("frontier: seek %s: %w", filePath, seekErr)
	}

	reader := bufio.NewReader(f)
	pos := offset

	for {
		line, readErr := reader.ReadString('\n')
		consumed := int64(len(line))

		trimmed := strings.TrimRight(line, "\n")
		if trimmed != "" {
			if parsed, ok := parseFrontierLine(trimmed); ok {
				if !hasNonTextExtension(parsed.URL) {
					return parsed, pos + consumed, true, nil
				}
			}
		}

		pos += consumed

		if readErr != nil {
			if readErr == io.EOF {
				return domain.FrontierEntry{}, pos, false, nil
			}
			return domain.FrontierEntry{}, pos, false, fmt.Errorf("frontier: read %s: %w", filePath, readErr)
		}
	}
}

// parseFrontierLine parses a "url|depth" line.
func parseFrontierLine(line string) (domain.FrontierEntry, bool) {
	idx := strings.LastIndexByte(line, '|')
	if idx < 0 {
		return domain.FrontierEntry{}, false
	}

	rawURL := line[:idx]
	depthStr := line[idx+1:]

	depth, err := strconv.Atoi(depthStr)
	if err != nil || rawURL == "" {
		return domain.FrontierEntry{}, false
	}

	return domain.FrontierEntry{URL: rawURL, Depth: depth}, true
}
