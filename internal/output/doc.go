// Package output maps permalinks to target files and writes rendered pages.
package output
