package pathnorm

import "runtime"

// Kind classifies a single path component.
type Kind int

const (
	KindPrefix Kind = iota + 1
	KindRootDir
	KindCurDir
	KindParentDir
	KindNormal
)

func (k Kind) String() string {
	switch k {
	case KindPrefix:
		return "prefix"
	case KindRootDir:
		return "root"
	case KindCurDir:
		return "cur"
	case KindParentDir:
		return "parent"
	case KindNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Component is one classified unit of a path. Text holds the opaque prefix
// payload for KindPrefix and the segment name for KindNormal.
type Component struct {
	Kind Kind
	Text string
}

func Prefix(text string) Component { return Component{Kind: KindPrefix, Text: text} }
func RootDir() Component { return Component{Kind: KindRootDir} }
func CurDir() Component { return Component{Kind: KindCurDir} }
func ParentDir() Component { return Component{Kind: KindParentDir} }
func Normal(text string) Component { return Component{Kind: KindNormal, Text: text} }

func (c Component) String() string {
	switch c.Kind {
	case KindCurDir:
		return "."
	case KindParentDir:
		return ".."
	case KindRootDir:
		return "/"
	default:
		return c.Text
	}
}

// Style is a platform path convention.
type Style int

const (
	Unix Style = iota
	Windows
)

// Native is the style of the running operating system.
var Native = nativeStyle()

func nativeStyle() Style {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return Unix
}

// ParseStyle maps a flag value to a Style. The empty string and "native"
// select Native.
func ParseStyle(value string) (Style, bool) {
	switch value {
	case "", "native":
		return Native, true
	case "unix", "posix":
		return Unix, true
	case "windows":
		return Windows, true
	default:
		return Native, false
	}
}

func (s Style) String() string {
	if s == Windows {
		return "windows"
	}
	return "unix"
}

// Separator is the separator written when joining components.
func (s Style) Separator() byte {
	if s == Windows {
		return '\\'
	}
	return '/'
}

func (s Style) isSeparator(c byte) bool {
	if s == Windows {
		return c == '\\' || c == '/'
	}
	return c == '/'
}
