package tags

import (
	"path/filepath"
	"strings"
)

// ReadFile reads tag metadata from an audio file. It never returns an error:
// unreadable or untagged files yield an empty Tag and the caller applies
// defaults, so a single bad file can never abort a library scan.
func ReadFile(path string) Tag {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return readMP3(path)
	case ExtFLAC:
		return readFLAC(path)
	case ExtM4A, ExtOGG:
		return readGeneric(path)
	default:
		// WAV files rarely carry usable tags; the filename stem serves as
		// the title downstream.
		return Tag{}
	}
}
