// Package metadata looks up display facts (title, channel, duration) for a
// media identifier. Lookup is a best-effort enrichment: sessions work without
// it.
package metadata

import (
	"context"
	"fmt"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/Minh20812/audio-sync-player/internal/media"
)

// VideoInfo is what the UI layer needs to describe the primary video.
type VideoInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	DurationSec float64 `json:"durationSec"`
	IsLive      bool    `json:"isLive"`
	Thumbnail   string  `json:"thumbnail"`
}

// Source resolves video info for an identifier.
type Source interface {
	Lookup(ctx context.Context, id media.ID) (*VideoInfo, error)
}

var installOnce sync.Once

// YTDLP resolves metadata by running yt-dlp against the watch URL.
type YTDLP struct{}

// yt-dlp's extracted info exposes most fields as pointers
func strOr(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func floatOr(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func boolOr(ptr *bool) bool {
	if ptr == nil {
		return false
	}
	return *ptr
}

func (YTDLP) Lookup(ctx context.Context, id media.ID) (*VideoInfo, error) {
	installOnce.Do(func() {
		ytdlp.MustInstall(ctx, nil)
	})

	cmd := ytdlp.New().
		SkipDownload().
		NoCheckCertificates().
		DumpJSON()

	res, err := cmd.Run(ctx, id.WatchURL())
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("parse yt-dlp json: no info returned")
	}
	ext := infos[0]

	out := &VideoInfo{
		ID:          ext.ID,
		Title:       strOr(ext.Title),
		Channel:     strOr(ext.Uploader),
		DurationSec: floatOr(ext.Duration),
		IsLive:      boolOr(ext.IsLive),
		Thumbnail:   id.ThumbnailURL(),
	}
	for _, t := range ext.Thumbnails {
		if t != nil && t.URL != "" {
			out.Thumbnail = t.URL
		}
	}
	return out, nil
}

var _ Source = YTDLP{}
