package pathnorm

import (
	"fmt"
	"testing"

	"github.com/metapath/metapath/internal/syserror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnix(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"", "."},
		{"/", "/"},
		{"/..", "/"},
		{".", "."},
		{"./foo", "foo"},
		{"foo", "foo"},
		{"/.", "/"},
		{"foo/bar", "foo/bar"},
		{"foo/bar/", "foo/bar"},
		{"foo//bar///", "foo/bar"},
		{"foo/bar/./baz/", "foo/bar/baz"},
		{"foo/bar/../baz/", "foo/baz"},
		{"foo/bar/../baz", "foo/baz"},
		{"../foo", "../foo"},
		{"../../foo", "../../foo"},
		{"foo/../../bar", "../bar"},
		{"foo/..", "."},
		{"./.", "."},
		{"././foo/./", "foo"},
		{"/foo/../foo/bar", "/foo/bar"},
		{"/../../a", "/a"},
		{"//a//b", "/a/b"},
		{"a/b/c/../../d", "a/d"},
		{"...", "..."},
		{".hidden/..x", ".hidden/..x"},
		{`a\b`, `a\b`},
	}

	for _, tt := range cases {
		assert.Equal(t, tt.want, NormalizeStyle(tt.in, Unix), "NormalizeStyle(%q)", tt.in)
	}
}

func TestNormalizeWindows(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"", "."},
		{`.\foo`, `foo`},
		{`..\foo`, `..\foo`},
		{`foo/bar\`, `foo\bar`},
		{`c:\foo`, `c:\foo`},
		{`C:\foo\`, `C:\foo`},
		{`c:\foo\..\foo\bar\`, `c:\foo\bar`},
		{`C:\foo\..\bar`, `C:\bar`},
		{`C:\..`, `C:\`},
		{`C:..`, `C:..`},
		{`C:..\..\x`, `C:..\..\x`},
		{`C:foo\..`, `C:`},
		{`C:.\foo`, `C:foo`},
		{`c:\`, `c:\`},
		{`\\127.0.0.1\$c\foo\bar\`, `\\127.0.0.1\$c\foo\bar`},
		{`\\127.0.0.1\$c\`, `\\127.0.0.1\$c\`},
		{`\\server\share\a\..`, `\\server\share\`},
		{`\\server\share\..\..`, `\\server\share\`},
		{`//server/share/a`, `//server/share\a`},
		{`\\.\COM1\x\..`, `\\.\COM1\`},
		{`\\?\C:\a\.\b\..\c`, `\\?\C:\a\c`},
		{`\\?\C:\a/b`, `\\?\C:\a/b`},
		{`\\?\UNC\server\share\x\..\y`, `\\?\UNC\server\share\y`},
		{`\\?\pictures\..`, `\\?\pictures\`},
		{`\\?\pictures`, `\\?\pictures`},
		{`\\?\UNC\server\share`, `\\?\UNC\server\share`},
		{`\\?\UNC\server\share\`, `\\?\UNC\server\share\`},
		{`\\.\COM1`, `\\.\COM1\`},
		{`\root\path\..`, `\root`},
		{`\..`, `\`},
		{`a\..\C:x`, `.\C:x`},
		{`a\..\C:.`, `.\C:.`},
	}

	for _, tt := range cases {
		assert.Equal(t, tt.want, NormalizeStyle(tt.in, Windows), "NormalizeStyle(%q)", tt.in)
	}
}

func TestNormalizeParentDispatch(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   []Component
		want []Component
	}{
		{"empty-stack", []Component{ParentDir()}, []Component{ParentDir()}},
		{"after-prefix", []Component{Prefix("C:"), ParentDir()}, []Component{Prefix("C:"), ParentDir()}},
		{"after-root", []Component{RootDir(), ParentDir()}, []Component{RootDir()}},
		{"after-parent", []Component{ParentDir(), ParentDir()}, []Component{ParentDir(), ParentDir()}},
		{"after-normal", []Component{Normal("a"), ParentDir()}, []Component{}},
		{"cur-dropped", []Component{CurDir(), Normal("a"), CurDir()}, []Component{Normal("a")}},
		{"cur-before-parent", []Component{CurDir(), ParentDir()}, []Component{ParentDir()}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeComponents(tt.in))
		})
	}
}

func TestPushParentCurDirOnStackPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok, "expected error panic, got %T", r)
		assert.True(t, syserror.Is(err))
	}()
	pushParent([]Component{CurDir()}, ParentDir())
}

func TestRecoverSystemError(t *testing.T) {
	t.Parallel()
	run := func() (err error) {
		defer syserror.Recover(&err)
		pushParent([]Component{CurDir()}, ParentDir())
		return nil
	}
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system error")
}

func TestJoin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ".", Join(nil, Unix))
	assert.Equal(t, "/", Join([]Component{RootDir()}, Unix))
	assert.Equal(t, "/a/b", Join([]Component{RootDir(), Normal("a"), Normal("b")}, Unix))
	assert.Equal(t, "../a", Join([]Component{ParentDir(), Normal("a")}, Unix))
	assert.Equal(t, `C:a`, Join([]Component{Prefix("C:"), Normal("a")}, Windows))
	assert.Equal(t, `C:\a`, Join([]Component{Prefix("C:"), RootDir(), Normal("a")}, Windows))
	assert.Equal(t, `C:..`, Join([]Component{Prefix("C:"), ParentDir()}, Windows))
}

func TestIsAbsAndEscapes(t *testing.T) {
	t.Parallel()
	assert.True(t, IsAbs("/a", Unix))
	assert.False(t, IsAbs("a/b", Unix))
	assert.True(t, IsAbs(`C:\a`, Windows))
	assert.False(t, IsAbs(`C:a`, Windows))
	assert.True(t, IsAbs(`\\server\share`, Windows))
	assert.True(t, IsAbs(`\\?\pictures`, Windows))
	assert.True(t, IsAbs(`\\?\C:`, Windows))
	assert.False(t, IsAbs(`C:`, Windows))

	assert.False(t, Escapes("a/../b", Unix))
	assert.False(t, Escapes("", Unix))
	assert.True(t, Escapes("a/../../b", Unix))
	assert.True(t, Escapes("/a", Unix))
	assert.True(t, Escapes(`C:a`, Windows))
}

func TestNormalizeProperties(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"", ".", "..", "/", "//", "/..", "a/b/../../..", "./../a/./b/..", "a//b/./c/",
		`C:`, `C:\`, `C:..\a`, `\\s\sh\..`, `\\?\UNC\s\sh`, `\\.\dev`, `\\server\\x`,
		`\\?\UNC`, `\\?\UNC\`, `a\..\C:.`, `\\.`, `\\?`, `\\.\`, `\\?\`,
	}
	for _, style := range []Style{Unix, Windows} {
		for _, in := range inputs {
			once := NormalizeStyle(in, style)
			assert.NotEmpty(t, once, "%s %q", style, in)
			assert.Equal(t, once, NormalizeStyle(once, style), "%s idempotence of %q", style, in)
		}
	}
}

func TestNormalizeConcurrent(t *testing.T) {
	t.Parallel()
	for i := 0; i < 16; i++ {
		t.Run(fmt.Sprintf("worker-%d", i), func(t *testing.T) {
			t.Parallel()
			in := fmt.Sprintf("root/%d/./x/../y//", i)
			assert.Equal(t, fmt.Sprintf("root/%d/y", i), NormalizeStyle(in, Unix))
		})
	}
}

func TestComponents(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Components("", Unix))
	assert.Equal(t, []Component{CurDir()}, Components(".", Unix))
	assert.Equal(t, []Component{CurDir(), Normal("foo")}, Components("./foo", Unix))
	assert.Equal(t, []Component{Normal("a"), Normal("b")}, Components("a/./b/.", Unix))
	assert.Equal(t, []Component{RootDir(), ParentDir(), Normal("x")}, Components("//../x/", Unix))
	assert.Equal(t, []Component{Prefix(`\\srv\share`), RootDir(), Normal("a")}, Components(`\\srv\share\a`, Windows))
	assert.Equal(t, []Component{Prefix(`C:`), CurDir(), Normal("a")}, Components(`C:.\a`, Windows))
	assert.Equal(t, []Component{Prefix(`\\?\C:`), RootDir(), Normal("a/b")}, Components(`\\?\C:\a/b`, Windows))
	assert.Equal(t, []Component{Prefix(`\\?\pictures`)}, Components(`\\?\pictures`, Windows))
	assert.Equal(t, []Component{Prefix(`\\?\pictures`), RootDir(), ParentDir()}, Components(`\\?\pictures\..`, Windows))
	assert.Equal(t, []Component{Prefix(`\\?\UNC\s\sh`)}, Components(`\\?\UNC\s\sh`, Windows))
	assert.Equal(t, []Component{Prefix(`\\.\COM1`), RootDir()}, Components(`\\.\COM1`, Windows))
}

func TestParseStyle(t *testing.T) {
	t.Parallel()
	style, ok := ParseStyle("windows")
	assert.True(t, ok)
	assert.Equal(t, Windows, style)
	style, ok = ParseStyle("")
	assert.True(t, ok)
	assert.Equal(t, Native, style)
	_, ok = ParseStyle("plan9")
	assert.False(t, ok)
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"", "/", "../a", "a/./b/../c", `C:\x\..`, `\\s\sh\a`, `\\?\UNC\s\sh\..`} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		for _, style := range []Style{Unix, Windows} {
			once := NormalizeStyle(in, style)
			if once == "" {
				t.Fatalf("%s: NormalizeStyle(%q) is empty", style, in)
			}
			if twice := NormalizeStyle(once, style); twice != once {
				t.Fatalf("%s: not idempotent for %q: %q then %q", style, in, once, twice)
			}
		}
	})
}
