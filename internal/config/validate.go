package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/metapath/metapath/internal/pathnorm"
	"github.com/rs/zerolog"
)

type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(v.Problems))
}

func (c *Config) Validate() error {
	v := &ValidationError{}

	if c.ConfigVersion != 1 {
		v.Add("configVersion must be 1")
	}

	if len(c.Libraries) == 0 {
		v.Add("libraries must contain at least one library")
	}

	names := map[string]struct{}{}
	mounts := map[string]struct{}{}
	for i, lib := range c.Libraries {
		if lib.Name == "" {
			v.Add("libraries[%d].name is required", i)
		} else if _, exists := names[lib.Name]; exists {
			v.Add("libraries[%d].name %q is duplicated", i, lib.Name)
		} else {
			names[lib.Name] = struct{}{}
		}

		if lib.Root == "" {
			v.Add("libraries[%d].root is required", i)
		} else if err := requireDir(c.resolvePath(lib.Root)); err != nil {
			v.Add("libraries[%d].root invalid: %v", i, err)
		}

		if err := validateMount(lib.Mount); err != nil {
			v.Add("libraries[%d].mount invalid: %v", i, err)
		} else if _, exists := mounts[lib.Mount]; exists {
			v.Add("libraries[%d].mount %q is duplicated", i, lib.Mount)
		} else {
			mounts[lib.Mount] = struct{}{}
		}
	}

	if err := validateFileName(c.MetaFiles.Self); err != nil {
		v.Add("metaFiles.self invalid: %v", err)
	}
	if err := validateFileName(c.MetaFiles.Item); err != nil {
		v.Add("metaFiles.item invalid: %v", err)
	}
	if c.MetaFiles.Self != "" && c.MetaFiles.Self == c.MetaFiles.Item {
		v.Add("metaFiles.self and metaFiles.item must differ")
	}

	if c.Scan.Workers <= 0 {
		v.Add("scan.workers must be > 0")
	}
	for i, pattern := range c.Scan.Ignore {
		if _, err := regexp.Compile(pattern); err != nil {
			v.Add("scan.ignore[%d] invalid: %v", i, err)
		}
	}

	if c.Index.Path == "" {
		v.Add("index.path is required")
	} else if err := ensureWritable(c.resolvePath(c.Index.Path)); err != nil {
		v.Add("index.path invalid: %v", err)
	}

	if err := validateListen(c.Server.Listen); err != nil {
		v.Add("server.listen invalid: %v", err)
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			v.Add("server.rateLimit.rps must be > 0")
		}
		if c.Server.RateLimit.Burst <= 0 {
			v.Add("server.rateLimit.burst must be > 0")
		}
		if c.Server.RateLimit.StatusCode < 400 || c.Server.RateLimit.StatusCode > 599 {
			v.Add("server.rateLimit.statusCode must be a 4xx or 5xx status")
		}
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		v.Add("logging.level invalid: %v", err)
	}
	switch c.Logging.Format {
	case FormatConsole, FormatJSON:
	default:
		v.Add("logging.format must be console|json")
	}
	if c.Logging.EventLog != "" {
		if err := ensureWritable(c.resolvePath(c.Logging.EventLog)); err != nil {
			v.Add("logging.eventLog invalid: %v", err)
		}
	}

	if c.Metrics.Enabled {
		if err := validateListen(c.Metrics.Listen); err != nil {
			v.Add("metrics.listen invalid: %v", err)
		}
	}

	if len(v.Problems) > 0 {
		sort.Strings(v.Problems)
		return v
	}
	return nil
}

// validateMount accepts absolute, already normalized URL paths.
func validateMount(mount string) error {
	if mount == "" {
		return errors.New("mount is required")
	}
	if !strings.HasPrefix(mount, "/") {
		return errors.New("must start with /")
	}
	if normalized := pathnorm.NormalizeStyle(mount, pathnorm.Unix); normalized != mount {
		return fmt.Errorf("must be normalized (%q)", normalized)
	}
	return nil
}

func validateFileName(name string) error {
	if name == "" {
		return errors.New("file name is required")
	}
	components := pathnorm.Components(name, pathnorm.Native)
	if len(components) != 1 || components[0].Kind != pathnorm.KindNormal || components[0].Text != name {
		return fmt.Errorf("%q must be a plain file name", name)
	}
	return nil
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("address is required")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func ensureWritable(path string) error {
	dir := filepath.Dir(path)
	if err := requireDir(dir); err != nil {
		return err
	}

	file, err := os.CreateTemp(dir, "metapath-validate-*")
	if err != nil {
		return err
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
