package repo

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// topExtensions caps the extension histogram.
const topExtensions = 20

var (
	dockerFiles = map[string]bool{"Dockerfile": true, "docker-compose.yml": true, "docker-compose.yaml": true}
	envFiles    = map[string]bool{".env": true, ".env.local": true, ".env.production": true}
)

// Inventory summarizes the scanned files. Extensions are ranked by count,
// ties broken by first appearance in files.
func Inventory(root string, files []string) review.RepoContext {
	counts := make(map[string]int)
	var order []string
	ctx := review.RepoContext{
		RepoRoot:      root,
		FileCount:     len(files),
		TopExtensions: []review.ExtCount{},
	}

	for _, f := range files {
		if ext := Ext(f); ext != "" {
			if counts[ext] == 0 {
				order = append(order, ext)
			}
			counts[ext]++
		}
		name := filepath.Base(f)
		if dockerFiles[name] {
			ctx.HasDocker = true
		}
		if envFiles[name] {
			ctx.HasEnvFiles = true
		}
		if strings.Contains(filepath.ToSlash(f), ".github/workflows") {
			ctx.HasGitHubActions = true
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topExtensions {
		order = order[:topExtensions]
	}
	for _, ext := range order {
		ctx.TopExtensions = append(ctx.TopExtensions, review.ExtCount{Ext: ext, Count: counts[ext]})
	}
	return ctx
}
