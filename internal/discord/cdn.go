package discord

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
)

// IconPath is the CDN path of a guild icon.
func IconPath(guildID, hash string) string {
	return fmt.Sprintf("/icons/%s/%s.png?size=512", guildID, hash)
}

// BannerPath is the CDN path of a guild banner.
func BannerPath(guildID, hash string) string {
	return fmt.Sprintf("/banners/%s/%s.png?size=512", guildID, hash)
}

// EmojiPath is the CDN path of a custom emoji image.
func EmojiPath(emojiID string, animated bool) string {
	if animated {
		return fmt.Sprintf("/emojis/%s.gif", emojiID)
	}
	return fmt.Sprintf("/emojis/%s.png", emojiID)
}

// AvatarPath is the CDN path of a user or webhook avatar.
func AvatarPath(id, hash string) string {
	return fmt.Sprintf("/avatars/%s/%s.png", id, hash)
}

// FetchAsset downloads a CDN asset and returns it as a data URI, the form the
// API accepts for icons, banners, emojis and avatars.
func (c *Client) FetchAsset(ctx context.Context, assetPath string) (string, error) {
	resp, err := c.cdn.R().SetContext(ctx).Get(assetPath)
	if err != nil {
		return "", &APIError{Kind: KindUnknown, Method: http.MethodGet, Path: assetPath, Err: err}
	}
	if !resp.IsSuccess() {
		return "", c.responseError(http.MethodGet, assetPath, resp)
	}
	return DataURI(resp.Header().Get("Content-Type"), assetPath, resp.Body()), nil
}

// DataURI encodes raw image bytes. The content type falls back to the
// extension of assetPath, then to image/png.
func DataURI(contentType, assetPath string, data []byte) string {
	ct := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if !strings.HasPrefix(ct, "image/") {
		p := assetPath
		if i := strings.IndexByte(p, '?'); i >= 0 {
			p = p[:i]
		}
		ct = mime.TypeByExtension(path.Ext(p))
		if !strings.HasPrefix(ct, "image/") {
			ct = "image/png"
		}
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
}
