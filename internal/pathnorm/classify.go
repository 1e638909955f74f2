package pathnorm

import "strings"

// Components splits path into classified components.
//
// Redundant separators and trailing separators produce nothing. A "."
// segment is only reported, as KindCurDir, when it leads a path that has
// no root; everywhere else it is dropped here. On Windows the prefix
// (drive, UNC share, device or verbatim form) is kept verbatim as a single
// KindPrefix component.
func Components(path string, style Style) []Component {
	out := make([]Component, 0, strings.Count(path, "/")+strings.Count(path, `\`)+2)

	rest := path
	isSep := style.isSeparator
	implicitRoot := false
	if style == Windows {
		var p prefix
		p, rest = splitPrefix(path)
		if p.text != "" {
			out = append(out, Prefix(p.text))
		}
		if p.verbatim {
			isSep = isBackslash
		}
		implicitRoot = p.implicitRoot
	}

	physicalRoot := rest != "" && isSep(rest[0])
	if physicalRoot || implicitRoot {
		out = append(out, RootDir())
	}
	if !physicalRoot && leadingCurDir(rest, isSep) {
		out = append(out, CurDir())
	}

	for start := 0; start < len(rest); {
		end := start
		for end < len(rest) && !isSep(rest[end]) {
			end++
		}
		switch seg := rest[start:end]; seg {
		case "", ".":
		case "..":
			out = append(out, ParentDir())
		default:
			out = append(out, Normal(seg))
		}
		start = end + 1
	}

	return out
}

func leadingCurDir(rest string, isSep func(byte) bool) bool {
	if rest == "." {
		return true
	}
	return len(rest) > 1 && rest[0] == '.' && isSep(rest[1])
}

type prefix struct {
	text         string
	verbatim     bool
	implicitRoot bool
}

// splitPrefix recognises, in order: verbatim (\\?\UNC\server\share,
// \\?\C:, \\?\name), device (\\.\name), UNC (\\server\share) and drive
// (C:) prefixes. Device and UNC prefixes carry an implicit root; drive and
// verbatim prefixes are rooted only by a separator that follows them.
func splitPrefix(path string) (prefix, string) {
	switch {
	case len(path) > 4 && strings.HasPrefix(path, `\\?\`):
		body := path[4:]
		if len(body) > 4 && strings.EqualFold(body[:4], `UNC\`) {
			end := uncEnd(path, 8, isBackslash)
			return prefix{text: path[:end], verbatim: true}, path[end:]
		}
		if len(body) >= 2 && isDriveLetter(body[0]) && body[1] == ':' {
			return prefix{text: path[:6], verbatim: true}, path[6:]
		}
		end := indexSep(path, 4, isBackslash)
		return prefix{text: path[:end], verbatim: true}, path[end:]

	case len(path) > 4 && isWindowsSep(path[0]) && isWindowsSep(path[1]) && path[2] == '.' && isWindowsSep(path[3]):
		end := indexSep(path, 4, isWindowsSep)
		return prefix{text: path[:end], implicitRoot: true}, path[end:]

	case len(path) >= 3 && isWindowsSep(path[0]) && isWindowsSep(path[1]) && !isWindowsSep(path[2]):
		end := uncEnd(path, 2, isWindowsSep)
		return prefix{text: path[:end], implicitRoot: true}, path[end:]

	case len(path) >= 2 && isDriveLetter(path[0]) && path[1] == ':':
		return prefix{text: path[:2]}, path[2:]
	}

	return prefix{}, path
}

// uncEnd returns the end of "server\share" starting at from. Separators
// between server and share are kept inside the prefix; a missing share
// ends the prefix after the server name.
func uncEnd(path string, from int, isSep func(byte) bool) int {
	serverEnd := indexSep(path, from, isSep)
	shareStart := serverEnd
	for shareStart < len(path) && isSep(path[shareStart]) {
		shareStart++
	}
	if shareStart == len(path) {
		return serverEnd
	}
	return indexSep(path, shareStart, isSep)
}

func indexSep(path string, from int, isSep func(byte) bool) int {
	for i := from; i < len(path); i++ {
		if isSep(path[i]) {
			return i
		}
	}
	return len(path)
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isWindowsSep(c byte) bool { return c == '\\' || c == '/' }

func isBackslash(c byte) bool { return c == '\\' }
