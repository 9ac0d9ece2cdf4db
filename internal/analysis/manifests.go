package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// frameworkMarkers maps well-known dependency names to the framework name
// reported in RepositoryAnalysis.Frameworks.
var frameworkMarkers = map[string]string{
	// npm
	"react":              "react",
	"vue":                "vue",
	"@angular/core":      "angular",
	"svelte":             "svelte",
	"express":            "express",
	"@nestjs/core":       "nest",
	"next":               "next",
	// python
	"django":             "django",
	"flask":              "flask",
	"fastapi":            "fastapi",
	// go
	"github.com/gin-gonic/gin": "gin",
	"github.com/labstack/echo": "echo",
	// jvm
	"org.springframework.boot": "spring",
	// rust
	"actix-web":          "actix",
	"rocket":             "rocket",
	// ruby
	"rails":              "rails",
}

// detectManifests scans the repository root for dependency manifests and
// returns frameworks and raw dependency names found in them.
func detectManifests(root string) (frameworks []string, deps []string) {
	seen := map[string]bool{}
	addFramework := func(name string) {
		if name != "" && !seen["fw:"+name] {
			seen["fw:"+name] = true
			frameworks = append(frameworks, name)
		}
	}
	addDep := func(name string) {
		if name != "" && !seen["dep:"+name] {
			seen["dep:"+name] = true
			deps = append(deps, name)
		}
	}

	for _, dep := range packageJSONDeps(filepath.Join(root, "package.json")) {
		addDep(dep)
		addFramework(frameworkMarkers[dep])
	}
	for _, dep := range goModDeps(filepath.Join(root, "go.mod")) {
		addDep(dep)
		addFramework(frameworkMarkers[dep])
	}
	for _, dep := range requirementsDeps(filepath.Join(root, "requirements.txt")) {
		addDep(dep)
		addFramework(frameworkMarkers[strings.ToLower(dep)])
	}
	for _, dep := range pyprojectDeps(filepath.Join(root, "pyproject.toml")) {
		addDep(dep)
		addFramework(frameworkMarkers[strings.ToLower(dep)])
	}
	for _, dep := range cargoDeps(filepath.Join(root, "Cargo.toml")) {
		addDep(dep)
		addFramework(frameworkMarkers[dep])
	}

	sort.Strings(deps)
	return frameworks, deps
}

func packageJSONDeps(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	out := make([]string, 0, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name := range manifest.Dependencies {
		out = append(out, name)
	}
	for name := range manifest.DevDependencies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func goModDeps(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var out []string
	inBlock := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(line, "require "):
			fields := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(fields) >= 1 && strings.Contains(fields[0], "/") {
				out = append(out, fields[0])
			}
		}
	}
	return out
}

func requirementsDeps(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		// Strip version specifiers and extras: "Django>=4.2" -> "Django"
		name := line
		for _, sep := range []string{"==", ">=", "<=", "~=", ">", "<", "[", ";", " "} {
			if idx := strings.Index(name, sep); idx >= 0 {
				name = name[:idx]
			}
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func pyprojectDeps(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies map[string]interface{} `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	var out []string
	for _, spec := range manifest.Project.Dependencies {
		name := spec
		for _, sep := range []string{"==", ">=", "<=", "~=", ">", "<", "[", ";", " "} {
			if idx := strings.Index(name, sep); idx >= 0 {
				name = name[:idx]
			}
		}
		out = append(out, name)
	}
	for name := range manifest.Tool.Poetry.Dependencies {
		if name != "python" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func cargoDeps(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Dependencies map[string]interface{} `toml:"dependencies"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	out := make([]string, 0, len(manifest.Dependencies))
	for name := range manifest.Dependencies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
