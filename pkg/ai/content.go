package ai

import (
	"encoding/base64"
	"fmt"
)

const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// ContentPart is one unit of message content, tagged by its "type" field. Text parts carry a
// "text" field; any other variant is passed to the service unchanged.
type ContentPart map[string]any

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{"type": ContentTypeText, "text": text}
}

// ImagePart returns an inline image part carrying base64 encoded data.
func ImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{
		"type":     ContentTypeImage,
		"mimeType": mimeType,
		"data":     base64.StdEncoding.EncodeToString(data),
	}
}

// Type returns the part's type tag.
func (p ContentPart) Type() string {
	t, _ := p["type"].(string)
	return t
}

// Text returns the text of a text part.
func (p ContentPart) Text() string {
	t, _ := p["text"].(string)
	return t
}

// Normalize converts caller supplied content into an ordered list of content parts:
//   - a string becomes one text part
//   - a single part is wrapped in a one element list
//   - a list is mapped element by element, strings promoted to text parts
//
// Order is preserved and nothing is deduplicated.
func Normalize(content any) ([]ContentPart, error) {
	switch v := content.(type) {
	case string:
		return []ContentPart{TextPart(v)}, nil
	case ContentPart:
		return []ContentPart{v}, nil
	case map[string]any:
		return []ContentPart{ContentPart(v)}, nil
	case []ContentPart:
		return append([]ContentPart{}, v...), nil
	case []string:
		parts := make([]ContentPart, len(v))
		for i, s := range v {
			parts[i] = TextPart(s)
		}
		return parts, nil
	case []any:
		parts := make([]ContentPart, len(v))
		for i, item := range v {
			p, err := normalizeItem(item)
			if err != nil {
				return nil, ErrInvalidContent.MsgErr(fmt.Sprintf("ai: content item %d: %v", i, err), err)
			}
			parts[i] = p
		}
		return parts, nil
	default:
		return nil, ErrInvalidContent.Msg(fmt.Sprintf("ai: unsupported content type %T", content))
	}
}

func normalizeItem(item any) (ContentPart, error) {
	switch v := item.(type) {
	case string:
		return TextPart(v), nil
	case ContentPart:
		return v, nil
	case map[string]any:
		return ContentPart(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", item)
	}
}
