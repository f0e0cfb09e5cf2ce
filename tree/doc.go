// Package tree holds the path and value model shared by pathmut and the
// databases it writes to.
//
// Paths are slash separated and always cleaned to an absolute form:
//
//	"a/b", "/a/b/", "//a//b" -> "/a/b"
//	"", "/"                   -> "/"
//
// Values are JSON-shaped trees (map[string]any, []any, string, float64, bool).
// A node may carry a priority, stored the way tree exports store it:
//
//	{".value": 42, ".priority": 10}          // leaf with priority
//	{"a": 1, "b": 2, ".priority": "x"}       // inner node with priority
package tree
