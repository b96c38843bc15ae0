package roster

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Backslash and colon are allowed so browser values like C:\fakepath\roster.csv pass.
var fileNameRegex = regexp.MustCompile(`^[a-z0-9\s_\\.\-:]+\.(csv|txt)$`)

// ValidFileName reports whether name looks like a roster export. The check runs
// on the lower-cased base name, so the extension is case-insensitive.
func ValidFileName(name string) bool {
	if name == "" {
		return false
	}
	base := name
	if strings.Contains(name, "/") {
		base = filepath.Base(name)
	}
	return fileNameRegex.MatchString(strings.ToLower(base))
}
