// Package routes maps request paths to the page views and collection items
// that serve them, and aliases to their canonical permalinks.
//
// Permalink templates become route patterns: %name turns into {name} and
// %{a.b} into {a_b}. A parameter in the last path segment matches across
// slashes, so a pattern like /docs/{path}/ also serves /docs/a/b/. When two
// patterns match a path, the one sorting first wins.
package routes
