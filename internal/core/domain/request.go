package domain

import (
	"strings"
)

// ParseFormat maps a path token to an output Format.
func ParseFormat(token string) (Format, error) {
	switch Format(strings.ToLower(token)) {
	case JPEG:
		return JPEG, nil
	case WebP:
		return WebP, nil
	}

	return "", &ValidationError{Err: ErrUnknownFormat}
}

// ParseImageRefs splits the slash separated tail of a request path. Empty segments, as
// left by a trailing or doubled slash, are skipped.
func ParseImageRefs(tail string) []string {
	segments := strings.Split(tail, "/")
	refs := make([]string, 0, len(segments))

	for _, s := range segments {
		if s == "" {
			continue
		}
		refs = append(refs, s)
	}

	return refs
}

// NewMosaicRequest validates the routed path values and builds a MosaicRequest.
func NewMosaicRequest(format, contextID, refsTail string) (MosaicRequest, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return MosaicRequest{}, err
	}

	if strings.TrimSpace(contextID) == "" {
		return MosaicRequest{}, &ValidationError{Err: ErrEmptySegment}
	}

	refs := ParseImageRefs(refsTail)
	if len(refs) < MinImages || len(refs) > MaxImages {
		return MosaicRequest{}, &ValidationError{Err: ErrImageCount}
	}

	return MosaicRequest{
		Format:    f,
		ContextID: contextID,
		ImageRefs: refs,
	}, nil
}
