package frontier

import (
	"net/url"
	"path"
	"strings"

	"github.com/arlobridge/crawlcore/internal/domain"
)

// nonTextExtensions is the fixed set of file suffixes whose bodies are
// not HTML-like text (glossary: "Non-text extensions").
var nonTextExtensions = map[string]struct{}{
	// images
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {}, "svg": {}, "webp": {}, "ico": {}, "tiff": {}, "tif": {},
	// video
	"mp4": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {}, "webm": {}, "mkv": {}, "mpg": {}, "mpeg": {}, "m4v": {},
	// audio
	"mp3": {}, "wav": {}, "flac": {}, "aac": {}, "ogg": {}, "wma": {}, "m4a": {}, "opus": {},
	// bulk documents
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {}, "odt": {},
	// archives
	"zip": {}, "rar": {}, "7z": {}, "tar": {}, "gz": {}, "bz2": {}, "xz": {}, "tgz": {},
	// executables
	"exe": {}, "msi": {}, "dmg": {}, "pkg": {}, "deb": {}, "rpm": {}, "apk": {}, "app": {},
	// binary
	"iso": {}, "bin": {}, "dat": {}, "db": {}, "sqlite": {}, "dll": {}, "so": {}, "dylib": {},
	// design
	"psd": {}, "ai": {}, "eps": {}, "indd": {}, "sketch": {}, "fig": {}, "xd": {},
	// pure-data
	"csv": {}, "json": {}, "xml": {}, "sql": {},
}

// hasNonTextExtension reports whether rawURL's path ends in an
// extension from the non-text set (case-insensitive; only the URL path
// is examined, so any query string is ignored).
func hasNonTextExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	ext := strings.TrimPrefix(path.Ext(parsed.Path), ".")
	if ext == "" {
		return false
	}

	_, isNonText := nonTextExtensions[strings.ToLower(ext)]
	return isNonText
}

// domainForURL extracts the registrable domain of a URL (glossary:
// "Domain"). This is the same definition internal/politeness uses, so
// the two never disagree about what a "domain" is.
func domainForURL(rawURL string) (string, error) {
	if _, err := ExtractHost(rawURL); err != nil {
		return "", err
	}

	return domain.RegistrableDomain(rawURL)
}
