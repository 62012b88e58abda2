package domain

import "strings"

var allowedImageExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// ImageExt returns the lowercased extension of name and whether it is an
// accepted image type. The extension is whatever follows the last dot.
func ImageExt(name string) (string, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return "", false
	}
	ext := strings.ToLower(name[i+1:])
	return ext, allowedImageExts[ext]
}

// ValidBlobName reports whether name is a plain file name that could have
// been produced by a blob sink: no directory components, no traversal, and an
// accepted image extension.
func ValidBlobName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	_, ok := ImageExt(name)
	return ok
}
