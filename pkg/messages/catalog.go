// Package messages maps backend result codes to user-facing text.
//
// The Korean catalog is the default and mirrors the strings the community web
// client shows. Catalogs are plain values; LoadFile overlays a YAML file on top
// of a base catalog so deployments can reword messages without a rebuild.
package messages

import (
	"maps"

	"golang.org/x/text/language"

	"github.com/godeps/community-sdk-go/pkg/envelope"
)

// Catalog holds the localized strings for one language.
type Catalog struct {
	Tag     language.Tag      `yaml:"-"`
	Errors  map[string]string `yaml:"errors"`
	Success map[string]string `yaml:"success"`
	// Network is shown for failures that never reached the backend.
	Network string `yaml:"network"`
	// Unknown is used when an error code is unmapped and no fallback was given.
	Unknown string `yaml:"unknown"`
}

// ErrorMessage returns the mapped message for code, or fallback when the code
// is unknown. An empty fallback resolves to the catalog's Unknown text.
func (c Catalog) ErrorMessage(code, fallback string) string {
	if msg, ok := c.Errors[code]; ok && msg != "" {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	return c.Unknown
}

// SuccessMessage returns the mapped confirmation for code, defaulting to the
// SUCCESS entry for absent or unknown codes.
func (c Catalog) SuccessMessage(code string) string {
	if msg, ok := c.Success[code]; ok && msg != "" {
		return msg
	}
	return c.Success[envelope.CodeSuccess]
}

// NetworkMessage is the fixed text for transport-class failures.
func (c Catalog) NetworkMessage() string {
	return c.Network
}

// Merge returns a copy of c with every non-empty entry of o applied on top.
func (c Catalog) Merge(o Catalog) Catalog {
	out := c.clone()
	for k, v := range o.Errors {
		if v != "" {
			out.Errors[k] = v
		}
	}
	for k, v := range o.Success {
		if v != "" {
			out.Success[k] = v
		}
	}
	if o.Network != "" {
		out.Network = o.Network
	}
	if o.Unknown != "" {
		out.Unknown = o.Unknown
	}
	return out
}

func (c Catalog) clone() Catalog {
	out := c
	out.Errors = maps.Clone(c.Errors)
	if out.Errors == nil {
		out.Errors = map[string]string{}
	}
	out.Success = maps.Clone(c.Success)
	if out.Success == nil {
		out.Success = map[string]string{}
	}
	return out
}

// InvalidatesSession reports whether a failure with code means the cached
// session is no longer valid.
func InvalidatesSession(code string) bool {
	return code == envelope.CodeUnauthorized || code == envelope.CodeInvalidSession
}

// ErrorMessage resolves code against the Korean catalog.
func ErrorMessage(code, fallback string) string {
	return korean.ErrorMessage(code, fallback)
}

// SuccessMessage resolves code against the Korean catalog.
func SuccessMessage(code string) string {
	return korean.SuccessMessage(code)
}
