// Package compiler turns page views into output files.
//
// An Engine dispatches on the page view kind:
//
//   - Static page views render once at their resolved permalink.
//   - Dynamic page views render once per bound collection item.
//   - Repeater page views render once per expanded permalink, with the
//     iterator values of that expansion visible to the front matter and body.
//
// Every alias (extra permalink templates and the redirects field) is recorded
// in a RedirectTable keyed by the alias. CompileAll runs page views in
// parallel. Front matter failures only skip the offending document, template
// and output failures stop the build.
package compiler
