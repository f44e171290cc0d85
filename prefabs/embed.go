package prefabs

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

//go:embed *.yaml
var PrefabsFS embed.FS

// Dir is where prefab files on disk override the embedded ones.
var Dir = "prefabs"

func Load(name string) ([]byte, error) {
	clean := cleanPrefabPath(name)
	if data, err := os.ReadFile(diskPrefabPath(clean)); err == nil {
		return data, nil
	}
	return PrefabsFS.ReadFile(clean)
}

func ModTime(name string) (time.Time, bool) {
	clean := cleanPrefabPath(name)
	info, err := os.Stat(diskPrefabPath(clean))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Files lists every prefab file, embedded or on disk, sorted.
func Files() ([]string, error) {
	seen := make(map[string]struct{})
	embedded, err := fs.ReadDir(PrefabsFS, ".")
	if err != nil {
		return nil, err
	}
	for _, e := range embedded {
		if !e.IsDir() && isSpecFile(e.Name()) {
			seen[e.Name()] = struct{}{}
		}
	}
	if entries, err := os.ReadDir(Dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && isSpecFile(e.Name()) {
				seen[e.Name()] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

func cleanPrefabPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, filepath.ToSlash(Dir)+"/"); ok {
		return after
	}
	return s
}

func diskPrefabPath(clean string) string {
	return filepath.Join(Dir, filepath.FromSlash(clean))
}
