package mediaembed

import (
	"errors"
	"fmt"
	"net/url"
)

type MediaData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

// GetVideoData fetches title/author/thumbnail for a video id, preferring the
// oEmbed endpoint and falling back to scraping the watch page for videos that
// disallow embedding.
func GetVideoData(videoId string) (*MediaData, error) {
	videoData, err := getVideoWithEmbed(videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = getFromPage(videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}

// VideoEmbedURL builds the iframe embed locator for a video id with the
// js api enabled and an initial start offset in whole seconds.
func VideoEmbedURL(videoId string, startSeconds int, origin string) string {
	v := url.Values{}
	v.Set("autoplay", "1")
	v.Set("controls", "1")
	v.Set("rel", "0")
	v.Set("playsinline", "1")
	v.Set("enablejsapi", "1")
	v.Set("start", fmt.Sprintf("%d", startSeconds))
	if origin != "" {
		v.Set("origin", origin)
	}

	return "https://www.youtube.com/embed/" + url.PathEscape(videoId) + "?" + v.Encode()
}

// WidgetEmbedURL builds the audio widget embed locator for a track url. The
// nonce is appended as a cache-busting query param so re-queueing the same
// track always produces a fresh frame.
func WidgetEmbedURL(trackURL string, nonce string) string {
	v := url.Values{}
	v.Set("url", trackURL)
	v.Set("color", "#ff5500")
	v.Set("auto_play", "false")
	v.Set("show_comments", "true")
	v.Set("visual", "true")
	if nonce != "" {
		v.Set("_t", nonce)
	}

	return "https://w.soundcloud.com/player/?" + v.Encode()
}
