package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "music", "self.yml"), "title: Music\n")
	writeFile(t, filepath.Join(dir, "music", "item.yml"), "album/: {title: Album}\n")
	writeFile(t, filepath.Join(dir, "music", "album", "item.yml"), "01.flac: {title: One}\n")
	writeFile(t, filepath.Join(dir, "music", "album", "01.flac"), "")
	writeFile(t, filepath.Join(dir, "metapath.yml"), `
configVersion: 1
libraries:
  - name: music
    root: ./music
    mount: /music
index:
  path: ./data/metapath.db
logging:
  level: error
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	return filepath.Join(dir, "metapath.yml")
}

func TestNormalizeCmd(t *testing.T) {
	out, err := execute(t, "", "normalize", "--style", "unix", "a/./b/../c", "../x/..")
	require.NoError(t, err)
	assert.Equal(t, "a/c\n..\n", out)

	out, err = execute(t, "foo//bar\r\n/..\n", "normalize", "--style", "unix")
	require.NoError(t, err)
	assert.Equal(t, "foo/bar\n/\n", out)

	out, err = execute(t, "", "normalize", "--style", "windows", "--components", `C:\a\..\b`)
	require.NoError(t, err)
	assert.Equal(t, "C:\\b\tprefix(C:) root normal(a) parent normal(b)\n", out)

	_, err = execute(t, "", "normalize", "--style", "vms", "a")
	assert.Error(t, err)
}

func TestIndexAndLookup(t *testing.T) {
	cfgPath := writeWorkspace(t)

	out, err := execute(t, "", "index", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "music: 3 files, 3 entries, 0 problems, 0 dangling")

	out, err = execute(t, "", "lookup", "-c", cfgPath, "music", "./album//01.flac")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "One"`)

	out, err = execute(t, "", "lookup", "-c", cfgPath, "--list", "music", "album")
	require.NoError(t, err)
	assert.Contains(t, out, `"album/01.flac"`)

	_, err = execute(t, "", "lookup", "-c", cfgPath, "music", "album/02.flac")
	assert.Error(t, err)

	_, err = execute(t, "", "index", "-c", cfgPath, "--library", "books")
	assert.Error(t, err)
}

func TestCheckCmd(t *testing.T) {
	cfgPath := writeWorkspace(t)
	dir := filepath.Dir(cfgPath)

	out, err := execute(t, "", "check", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "music: 3 files")

	writeFile(t, filepath.Join(dir, "music", "broken", "item.yml"), "../escape: {}\n")
	out, err = execute(t, "", "check", "-c", cfgPath)
	assert.Error(t, err)
	assert.Contains(t, out, "unable to parse text")

	out, err = execute(t, "", "check", filepath.Join(dir, "music", "album", "item.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok (1 entries)")

	_, err = execute(t, "", "check", filepath.Join(dir, "metapath.yml"))
	assert.Error(t, err)

	out, err = execute(t, "", "check", "--target", "contains", filepath.Join(dir, "music", "album", "item.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok (1 entries)")
}

func TestCheckCmdUsesConfiguredNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "dir.yml"), "title: Lib\n")
	writeFile(t, filepath.Join(dir, "lib", "files.yml"), "a.flac: {title: A}\nb.flac: {title: B}\n")
	writeFile(t, filepath.Join(dir, "metapath.yml"), `
configVersion: 1
libraries:
  - name: lib
    root: ./lib
    mount: /lib
metaFiles:
  self: dir.yml
  item: files.yml
`)
	cfgPath := filepath.Join(dir, "metapath.yml")

	out, err := execute(t, "", "check", "-c", cfgPath, filepath.Join(dir, "lib", "files.yml"), filepath.Join(dir, "lib", "dir.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "files.yml: ok (2 entries)")
	assert.Contains(t, out, "dir.yml: ok (1 entries)")

	_, err = execute(t, "", "check", filepath.Join(dir, "lib", "files.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --target")
}

func TestValidateAndVersion(t *testing.T) {
	cfgPath := writeWorkspace(t)

	out, err := execute(t, "", "validate", "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "config ok\n", out)

	_, err = execute(t, "", "validate")
	assert.Error(t, err)

	out, err = execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "version="))
}
