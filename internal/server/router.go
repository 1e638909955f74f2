package server

import (
	"sort"
	"strings"

	"github.com/metapath/metapath/internal/config"
)

// Mount binds a library to a URL path prefix.
type Mount struct {
	Library string
	Prefix  string
}

type Router struct {
	mounts []Mount
}

func NewRouter(libraries []config.Library) *Router {
	mounts := make([]Mount, 0, len(libraries))
	for _, lib := range libraries {
		mounts = append(mounts, Mount{Library: lib.Name, Prefix: strings.TrimSuffix(lib.Mount, "/")})
	}

	sort.SliceStable(mounts, func(i, j int) bool {
		if len(mounts[i].Prefix) == len(mounts[j].Prefix) {
			return mounts[i].Library < mounts[j].Library
		}
		return len(mounts[i].Prefix) > len(mounts[j].Prefix)
	})

	return &Router{mounts: mounts}
}

// Match picks the longest mount covering urlPath and returns the rest of
// the path below it. Mounts only match on whole segments.
func (r *Router) Match(urlPath string) (Mount, string, bool) {
	for _, mount := range r.mounts {
		switch {
		case mount.Prefix == "":
			return mount, strings.TrimPrefix(urlPath, "/"), true
		case urlPath == mount.Prefix:
			return mount, "", true
		case strings.HasPrefix(urlPath, mount.Prefix+"/"):
			return mount, urlPath[len(mount.Prefix)+1:], true
		}
	}
	return Mount{}, "", false
}
