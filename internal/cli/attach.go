package cli

import (
	"fmt"
	"os"

	"github.com/h2non/filetype"

	"github.com/fine-dev/fine-go/pkg/ai"
)

// maxAttachmentSize bounds inline attachments.
const maxAttachmentSize = 10 << 20

// attachmentPart reads an image file and returns it as an inline content part. The type is
// sniffed from the file's content, not its name.
func attachmentPart(path string) (ai.ContentPart, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read attachment: %w", err)
	}
	if info.Size() > maxAttachmentSize {
		return nil, fmt.Errorf("attachment %s is larger than %d bytes", path, maxAttachmentSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read attachment: %w", err)
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("attachment %s is not a supported image", path)
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("unable to detect attachment type: %w", err)
	}
	return ai.ImagePart(kind.MIME.Value, data), nil
}

// messageContent combines the message text and attachments into message content.
func messageContent(text string, attachments []string) (any, error) {
	if len(attachments) == 0 {
		if text == "" {
			return nil, fmt.Errorf("message text or --attach is required")
		}
		return text, nil
	}
	parts := make([]any, 0, len(attachments)+1)
	if text != "" {
		parts = append(parts, text)
	}
	for _, a := range attachments {
		part, err := attachmentPart(a)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}
