package content

import (
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

// Bind returns a copy of item with its front matter resolved on top of
// defaults. Item fields win over defaults. The first permalink candidate
// becomes canonical and any further candidates become aliases.
//
// Items without a permalink default to /<namespace>/<basename>/.
func Bind(item *Item, defaults resolver.FrontMatter, r *resolver.Resolver) (*Item, error) {
	merged := make(resolver.FrontMatter, len(defaults)+len(item.Raw))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range item.Raw {
		merged[k] = v
	}

	overrides := PathOverrides(item.SourcePath)
	if _, ok := merged["permalink"]; !ok {
		merged["permalink"] = "/" + item.Namespace + "/%basename/"
	}

	resolved, err := r.WithOverrides(overrides).Resolve(merged)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFrontMatter, "failed to resolve front matter").
			WithContext("file", item.SourcePath).
			Build()
	}

	bound := *item
	bound.Fields = resolved.Fields
	bound.redirects = nil

	candidates := resolved.Candidates("permalink")
	if len(candidates) > 0 {
		bound.permalink = output.NormalizePermalink(candidates[0])
		for _, alias := range candidates[1:] {
			bound.redirects = append(bound.redirects, output.NormalizePermalink(alias))
		}
	}
	for _, alias := range resolved.Strings("redirects") {
		bound.redirects = append(bound.redirects, output.NormalizePermalink(alias))
	}
	bound.Fields["permalink"] = bound.permalink
	return &bound, nil
}
