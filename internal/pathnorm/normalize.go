// Package pathnorm normalizes paths lexically: separators are collapsed,
// "." segments removed and ".." segments resolved against the segments that
// precede them. The file system is never consulted, so symlinks are not
// followed and nothing needs to exist.
package pathnorm

import (
	"strings"

	"github.com/metapath/metapath/internal/syserror"
)

// Normalize normalizes path using the conventions of the running OS.
func Normalize(path string) string {
	return NormalizeStyle(path, Native)
}

// NormalizeStyle normalizes path using the given style. The result is never
// empty: a path that reduces to nothing becomes ".".
func NormalizeStyle(path string, style Style) string {
	return Join(NormalizeComponents(Components(path, style)), style)
}

// NormalizeComponents reduces a classified component sequence.
//
// CurDir components are dropped. A ParentDir cancels a preceding Normal,
// is absorbed by a RootDir, and is otherwise kept (at the start of a
// relative path, after a Prefix, or after another ParentDir).
func NormalizeComponents(in []Component) []Component {
	stack := make([]Component, 0, len(in))

	for _, c := range in {
		switch c.Kind {
		case KindCurDir:
		case KindParentDir:
			stack = pushParent(stack, c)
		default:
			stack = append(stack, c)
		}
	}

	return stack
}

func pushParent(stack []Component, parent Component) []Component {
	if len(stack) == 0 {
		return append(stack, parent)
	}
	switch top := stack[len(stack)-1]; top.Kind {
	case KindPrefix, KindParentDir:
		return append(stack, parent)
	case KindRootDir:
		return stack
	case KindNormal:
		return stack[:len(stack)-1]
	case KindCurDir:
		panic(syserror.New("pathnorm: current directory component on the normalization stack"))
	default:
		panic(syserror.Newf("pathnorm: unknown component kind %d on the normalization stack", int(top.Kind)))
	}
}

// Join reassembles components into a path. A separator goes between two
// components unless the first is a Prefix or a RootDir; a RootDir is
// written as the separator itself. No components join to ".". On Windows a
// leading Normal segment that reads like a drive ("C:x") is written as
// ".\C:x" so the result does not turn into a prefixed path.
func Join(components []Component, style Style) string {
	if len(components) == 0 {
		return "."
	}

	sep := style.Separator()
	var b strings.Builder
	if style == Windows && looksLikeDrive(components[0]) {
		b.WriteByte('.')
		b.WriteByte(sep)
	}
	for i, c := range components {
		if i > 0 && c.Kind != KindRootDir {
			switch components[i-1].Kind {
			case KindPrefix, KindRootDir:
			default:
				b.WriteByte(sep)
			}
		}
		if c.Kind == KindRootDir {
			b.WriteByte(sep)
			continue
		}
		b.WriteString(c.String())
	}
	return b.String()
}

func looksLikeDrive(c Component) bool {
	return c.Kind == KindNormal && len(c.Text) >= 2 && isDriveLetter(c.Text[0]) && c.Text[1] == ':'
}

// IsAbs reports whether path has a root. Every Windows prefix except a
// plain drive roots the path, whether or not a RootDir follows it.
func IsAbs(path string, style Style) bool {
	for _, c := range Components(path, style) {
		switch c.Kind {
		case KindRootDir:
			return true
		case KindPrefix:
			if !isDrivePrefix(c.Text) {
				return true
			}
		}
	}
	return false
}

func isDrivePrefix(text string) bool {
	return len(text) == 2 && isDriveLetter(text[0]) && text[1] == ':'
}

// Escapes reports whether path, once normalized, cannot be resolved below a
// base directory: it is rooted, carries a prefix, or starts with "..".
func Escapes(path string, style Style) bool {
	normalized := NormalizeComponents(Components(path, style))
	if len(normalized) == 0 {
		return false
	}
	switch normalized[0].Kind {
	case KindPrefix, KindRootDir, KindParentDir:
		return true
	default:
		return false
	}
}
