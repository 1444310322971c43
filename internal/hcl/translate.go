// This file contains the logic for translating the HCL schema structs into
// the format-agnostic project model defined in the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

func (l *Loader) translateProject(ctx context.Context, b *projectBlock, root string) (*config.Project, error) {
	p := &config.Project{
		Name:       b.Name,
		Root:       root,
		Externals:  b.Externals,
		Extensions: b.Extensions,
		Platforms:  make(map[string][]string),
		Packages:   make(map[string]string),
	}
	if b.DefaultScale != nil {
		if *b.DefaultScale < 0 {
			return nil, fmt.Errorf("default_scale must not be negative, got %d", *b.DefaultScale)
		}
		p.DefaultScale = *b.DefaultScale
	}
	if b.VendorDir != nil {
		p.VendorDir = *b.VendorDir
	}
	if b.MocksDir != nil {
		p.MocksDir = *b.MocksDir
	}
	if b.MaxDiagnostics != nil {
		p.MaxDiagnostics = *b.MaxDiagnostics
	}
	if b.Concurrency != nil {
		p.Concurrency = *b.Concurrency
	}

	for _, pl := range b.Platforms {
		if _, dup := p.Platforms[pl.Name]; dup {
			return nil, fmt.Errorf("platform %q declared more than once", pl.Name)
		}
		p.Platforms[pl.Name] = pl.Aliases
	}
	for _, pkg := range b.Packages {
		if _, dup := p.Packages[pkg.Name]; dup {
			return nil, fmt.Errorf("package %q declared more than once", pkg.Name)
		}
		p.Packages[pkg.Name] = pkg.Path
	}

	virtuals, err := translateStringMap(ctx, b.VirtualModules, "virtual_modules")
	if err != nil {
		return nil, err
	}
	p.VirtualModules = virtuals

	p.ApplyDefaults()
	return p, nil
}

// isExprDefined reports whether an optional attribute was present in the
// source. Omitted optional attributes decode to zero-width expressions.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

// translateStringMap evaluates an object expression whose values must all be strings.
func translateStringMap(ctx context.Context, expr hcl.Expression, attrName string) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx)
	if !isExprDefined(expr) {
		logger.Debug("Attribute not set.", "attribute", attrName)
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid %s: %w", attrName, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("%s must be a map of strings, got %s", attrName, val.Type().FriendlyName())
	}

	out := make(map[string]string, val.LengthInt())
	it := val.ElementIterator()
	for it.Next() {
		k, v := it.Element()
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("%s[%q]: %w", attrName, k.AsString(), err)
		}
		if s.IsNull() {
			return nil, fmt.Errorf("%s[%q] must not be null", attrName, k.AsString())
		}
		out[k.AsString()] = s.AsString()
	}
	logger.Debug("Decoded string map.", "attribute", attrName, "entries", len(out))
	return out, nil
}
