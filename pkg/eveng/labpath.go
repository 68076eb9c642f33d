package eveng

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultLabsRoot is the directory where EVE-NG stores the lab files
const DefaultLabsRoot = "/opt/unetlab/labs"

const labExtension = ".unl"

// LabPath identifies a lab both by its file in the EVE-NG host and by its API path
type LabPath struct {
	root string
	rel  string
}

// ParseLabPath accepts a lab given as a path relative to the labs root, with or without
// the .unl extension, or as an absolute path inside the labs root.
func ParseLabPath(root, lab string) (LabPath, error) {
	if root == "" {
		root = DefaultLabsRoot
	}
	root = path.Clean(root)

	lab = strings.TrimSpace(lab)
	if lab == "" {
		return LabPath{}, fmt.Errorf("lab path is empty")
	}

	if strings.HasPrefix(lab, root+"/") {
		lab = strings.TrimPrefix(lab, root)
	}

	rel := strings.TrimPrefix(path.Clean("/"+lab), "/")
	if rel == "" || rel == "." {
		return LabPath{}, fmt.Errorf("invalid lab path %q", lab)
	}

	if !strings.HasSuffix(rel, labExtension) {
		rel += labExtension
	}

	return LabPath{root: root, rel: rel}, nil
}

// File returns the absolute path of the lab file
func (l LabPath) File() string {
	return path.Join(l.root, l.rel)
}

// API returns the path of the lab in the EVE-NG API (e.g /folder/lab.unl)
func (l LabPath) API() string {
	return "/" + l.rel
}

// String implements fmt.Stringer
func (l LabPath) String() string {
	return l.API()
}

// escapeLabPath escapes each segment of a lab API path for its use in an URL
func escapeLabPath(lab string) string {
	segments := strings.Split(strings.Trim(lab, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return "/" + strings.Join(segments, "/")
}
