package analysis

import "regexp"

// languageForExt maps file extensions to language names.
var languageForExt = map[string]string{
	".go":   "Go",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".mjs":  "JavaScript",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".py":   "Python",
	".rb":   "Ruby",
	".rs":   "Rust",
	".java": "Java",
	".kt":   "Kotlin",
	".c":    "C",
	".h":    "C",
	".cpp":  "C++",
	".cc":   "C++",
	".cs":   "C#",
	".php":  "PHP",
	".swift": "Swift",
}

// structurePatterns holds the per-language heuristics for counting code
// structure. The exact regexes are heuristics, not parsers; they only need to
// be stable and cheap.
type structurePatterns struct {
	function *regexp.Regexp
	class    *regexp.Regexp
	imports  *regexp.Regexp
}

var patternsForLanguage = map[string]structurePatterns{
	"Go": {
		function: regexp.MustCompile(`^\s*func\s+(\([^)]+\)\s*)?[A-Za-z_]\w*\s*\(`),
		class:    regexp.MustCompile(`^\s*type\s+[A-Za-z_]\w*\s+(struct|interface)\b`),
		imports:  regexp.MustCompile(`^\s*(import\s|\t"[^"]+"|\s+"[^"]+")`),
	},
	"JavaScript": {
		function: regexp.MustCompile(`(^\s*(export\s+)?(async\s+)?function\s+\w+|^\s*(const|let|var)\s+\w+\s*=\s*(async\s*)?(\([^)]*\)|\w+)\s*=>)`),
		class:    regexp.MustCompile(`^\s*(export\s+)?(default\s+)?class\s+\w+`),
		imports:  regexp.MustCompile(`^\s*(import\s.+from\s|const\s.+=\s*require\()`),
	},
	"TypeScript": {
		function: regexp.MustCompile(`(^\s*(export\s+)?(async\s+)?function\s+\w+|^\s*(const|let)\s+\w+\s*=\s*(async\s*)?(\([^)]*\)|\w+)\s*(:\s*[^=]+)?=>)`),
		class:    regexp.MustCompile(`^\s*(export\s+)?(abstract\s+)?class\s+\w+|^\s*(export\s+)?interface\s+\w+`),
		imports:  regexp.MustCompile(`^\s*import\s`),
	},
	"Python": {
		function: regexp.MustCompile(`^\s*(async\s+)?def\s+\w+\s*\(`),
		class:    regexp.MustCompile(`^\s*class\s+\w+`),
		imports:  regexp.MustCompile(`^\s*(import\s+\w|from\s+[\w.]+\s+import\s)`),
	},
	"Ruby": {
		function: regexp.MustCompile(`^\s*def\s+\w+`),
		class:    regexp.MustCompile(`^\s*(class|module)\s+[A-Z]\w*`),
		imports:  regexp.MustCompile(`^\s*require(_relative)?\s`),
	},
	"Rust": {
		function: regexp.MustCompile(`^\s*(pub\s+)?(async\s+)?fn\s+\w+`),
		class:    regexp.MustCompile(`^\s*(pub\s+)?(struct|enum|trait)\s+\w+`),
		imports:  regexp.MustCompile(`^\s*use\s+[\w:]+`),
	},
	"Java": {
		function: regexp.MustCompile(`^\s*(public|private|protected|static|\s)*[\w<>\[\]]+\s+\w+\s*\([^)]*\)\s*(\{|throws)`),
		class:    regexp.MustCompile(`^\s*(public\s+)?(final\s+|abstract\s+)?(class|interface|enum)\s+\w+`),
		imports:  regexp.MustCompile(`^\s*import\s+[\w.]+;`),
	},
}

// decisionPattern matches branch keywords for the complexity heuristic.
// Shared across languages; close enough for a density score.
var decisionPattern = regexp.MustCompile(`\b(if|elif|for|while|case|when|catch|except|rescue)\b|&&|\|\|`)

// DetectLanguage returns the language for a file extension, or "".
func DetectLanguage(ext string) string {
	return languageForExt[ext]
}
