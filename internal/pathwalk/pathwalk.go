// Package pathwalk implements filename legality checking and the absolute
// path resolver: walking a path component by component to find the inode
// numbers of its parent directory and final component.
package pathwalk

import (
	"errors"
	"strings"

	"github.com/proyashpodder/minifs/internal/dirent"
	"github.com/proyashpodder/minifs/internal/inode"
)

// ErrNotAbsolute is returned when a path does not begin with '/'.
var ErrNotAbsolute = errors.New("pathwalk: path must be absolute")

// ErrIllegalName is returned when a path component fails the legality
// check (see Legal).
var ErrIllegalName = errors.New("pathwalk: illegal file name")

// ErrUnresolvable is returned when an intermediate path component does not
// exist, or exists but is not a directory.
var ErrUnresolvable = errors.New("pathwalk: path cannot be resolved")

// Legal reports whether name is usable as a filename: 1 to maxName-1
// bytes, containing only ASCII letters, digits, '.', '-', or '_'.
func Legal(name string, maxName int) bool {
	if len(name) < 1 || len(name) > maxName-1 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// Accessor is the inode-reading dependency Resolve needs.
type Accessor interface {
	Read(n int) (inode.Inode, error)
}

// Finder is the directory-entry-searching dependency Resolve needs.
type Finder interface {
	Find(parent inode.Inode, name string) (int, error)
}

// Resolve walks an absolute path starting from inode 0 (root). It returns
// the inode of the directory that contains (or would contain) the final
// component, the final component's inode (-1 if it does not exist), and
// the final component's name. No '.' or '..' shorthand is recognized;
// such names are ordinary, comparable filenames. Components are compared
// byte-exact and case-sensitive; repeated slashes collapse.
func Resolve(acc Accessor, finder Finder, path string, maxName int) (parentInode, childInode int, lastName string, err error) {
	if len(path) == 0 || path[0] != '/' {
		return 0, -1, "", ErrNotAbsolute
	}

	parts := splitNonEmpty(path)
	if len(parts) == 0 {
		return 0, 0, "", nil
	}

	parent := 0
	child := 0
	for _, comp := range parts {
		if !Legal(comp, maxName) {
			return 0, -1, "", ErrIllegalName
		}
		if child < 0 {
			return 0, -1, "", ErrUnresolvable
		}
		parent = child
		parentIno, rerr := acc.Read(parent)
		if rerr != nil {
			return 0, -1, "", rerr
		}
		if parentIno.Type != inode.TypeDir {
			return 0, -1, "", ErrUnresolvable
		}
		found, ferr := finder.Find(parentIno, comp)
		switch {
		case errors.Is(ferr, dirent.ErrNotFound):
			child = -1
		case ferr != nil:
			return 0, -1, "", ferr
		default:
			child = found
		}
		lastName = comp
	}
	return parent, child, lastName, nil
}

func splitNonEmpty(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
