package analysis

import "regexp"

// securityRule flags a line-level security concern.
type securityRule struct {
	kind     string
	severity string
	message  string
	pattern  *regexp.Regexp
}

var securityRules = []securityRule{
	{
		kind:     "hardcoded-secret",
		severity: "critical",
		message:  "possible hardcoded credential",
		pattern:  regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*["'][^"']{4,}["']`),
	},
	{
		kind:     "dynamic-eval",
		severity: "warning",
		message:  "dynamic code evaluation",
		pattern:  regexp.MustCompile(`\beval\s*\(|\bexec\s*\(`),
	},
	{
		kind:     "insecure-url",
		severity: "warning",
		message:  "insecure http:// URL",
		pattern:  regexp.MustCompile(`["']http://[^"'\s]+["']`),
	},
	{
		kind:     "shell-injection",
		severity: "warning",
		message:  "shell command built from a string",
		pattern:  regexp.MustCompile(`(os\.system|subprocess\.call|child_process)`),
	},
}

// qualityRule flags a line-level maintainability concern.
type qualityRule struct {
	kind    string
	message string
	pattern *regexp.Regexp
}

var qualityRules = []qualityRule{
	{
		kind:    "todo-marker",
		message: "unresolved TODO/FIXME marker",
		pattern: regexp.MustCompile(`\b(TODO|FIXME|XXX|HACK)\b`),
	},
	{
		kind:    "debug-print",
		message: "leftover debug print",
		pattern: regexp.MustCompile(`\b(console\.log|fmt\.Println|print\s*\(\s*["'])`),
	},
}

// longLineThreshold flags unreadable lines.
const longLineThreshold = 200
