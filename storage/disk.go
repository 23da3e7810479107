// Package storage fetches resolved voice notes onto the local disk.
package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072 // enough for mimetype's longest magic number

// DownloadVoice streams the content behind url into destination. The payload
// is sniffed before anything touches the disk: non-audio content is rejected,
// since resolved bot-API links occasionally serve an HTML error page instead
// of the file. A partial file is removed on any failure.
func DownloadVoice(ctx context.Context, client *http.Client, url, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("response status was %d", resp.StatusCode)
	}

	body := bufio.NewReader(resp.Body)
	head, err := body.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return err
	}
	if mime := mimetype.Detect(head); !isVoiceContent(mime) {
		return fmt.Errorf("unexpected content type %s", mime)
	}

	file, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		_ = os.Remove(destination)
		return err
	}
	return file.Close()
}

// isVoiceContent accepts any audio type; voice notes usually come through as
// OGG/Opus, which some detectors report as application/ogg.
func isVoiceContent(m *mimetype.MIME) bool {
	return strings.HasPrefix(m.String(), "audio/") || m.Is("application/ogg")
}
