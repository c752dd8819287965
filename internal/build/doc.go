// Package build orchestrates a full site build: it loads data, git
// information, collections and page views into a Site, compiles every page
// view and writes the result together with redirect stubs.
//
// All execution paths (CLI build, dev server reloads, tests) go through
// LoadSite and Builder.
package build
