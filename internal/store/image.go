// Package store holds helpers shared by the persistence backends.
package store

import (
	"fmt"
	"reflect"
	"strings"
)

// DefaultPlaceholderImage is served when a product carries no usable image.
const DefaultPlaceholderImage = "https://via.placeholder.com/300x400?text=No+Image"

// imageFields lists product document fields that may carry the primary
// image, in priority order. "images" and "carousel" may be lists.
var imageFields = []string{"mainImg", "mainImage", "main_image", "image", "img", "imageUrl", "url", "images", "carousel"}

// ImageResolver turns stored image references into URLs a client can load.
type ImageResolver struct {
	BaseURL     string
	Placeholder string
}

// Resolve picks the first non-empty image reference from doc and normalizes it.
func (r ImageResolver) Resolve(doc map[string]any) string {
	for _, field := range imageFields {
		if ref := firstString(doc[field]); ref != "" {
			return r.Normalize(ref)
		}
	}
	return r.Normalize("")
}

// Normalize passes absolute and data URLs through, prefixes root-relative
// paths with BaseURL and falls back to the placeholder when ref is empty.
func (r ImageResolver) Normalize(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		if r.Placeholder != "" {
			return r.Placeholder
		}
		return DefaultPlaceholderImage
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return ref
	}
	if strings.HasPrefix(ref, "/") && r.BaseURL != "" {
		return strings.TrimRight(r.BaseURL, "/") + ref
	}
	return ref
}

// StringList flattens a scalar or list value into trimmed, non-empty strings.
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if s := firstString(rv.Index(i).Interface()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() > 0 {
		return firstString(rv.Index(0).Interface())
	}
	return ""
}
