package transform

import (
	"regexp"
	"strings"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

var imageSuffixes = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

var youtubeID = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/)|youtu\.be/)([A-Za-z0-9_-]{6,})`)

// VideoPlaceholderThumbnail is shown for videos that have no known thumbnail.
const VideoPlaceholderThumbnail = "https://www.youtube.com/img/desktop/yt_1200.png"

// urlPath drops the query and fragment of a URL.
func urlPath(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func hasSuffixFold(s string, suffixes ...string) bool {
	p := strings.ToLower(urlPath(strings.TrimSpace(s)))
	for _, suffix := range suffixes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// IsImageURL reports whether s ends in a known image file suffix.
func IsImageURL(s string) bool {
	return hasSuffixFold(s, imageSuffixes...)
}

func isImageName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(n, "image") || strings.HasSuffix(n, "url") || strings.HasSuffix(n, "link")
}

// fieldStrings returns every string value of a field, flattening nested lists.
func fieldStrings(f Field) []string {
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	for _, v := range f.Data {
		walk(v)
	}
	return out
}

// firstMatch returns the index of the first field holding a string accepted
// by match, along with that string.
func firstMatch(fields []Field, match func(string) bool) (int, string) {
	for i, f := range fields {
		for _, s := range fieldStrings(f) {
			if match(s) {
				return i, s
			}
		}
	}
	return -1, ""
}

func isURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

type imageTransformer struct{}

func (imageTransformer) build(c *Context) types.ComponentData {
	out := &types.Image{Base: c.base(types.ComponentImage)}
	if _, src := firstMatch(c.Fields, IsImageURL); src != "" {
		out.Src = src
		return out
	}
	c.Fail(types.CodeTransformNoImage, "no field holds an image URL")
	return out
}

type videoTransformer struct{}

func (videoTransformer) build(c *Context) types.ComponentData {
	out := &types.VideoPlayer{Base: c.base(types.ComponentVideoPlayer)}

	if _, u := firstMatch(c.Fields, youtubeID.MatchString); u != "" {
		id := youtubeID.FindStringSubmatch(u)[1]
		out.Src = "https://www.youtube.com/embed/" + id
		out.Thumbnail = "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
		return out
	}

	if _, u := firstMatch(c.Fields, func(s string) bool { return isURL(s) && !IsImageURL(s) }); u != "" {
		out.Src = u
		out.Thumbnail = VideoPlaceholderThumbnail
		if _, img := firstMatch(c.Fields, IsImageURL); img != "" {
			out.Thumbnail = img
		}
		return out
	}

	c.Fail(types.CodeTransformNoVideo, "no field holds a video URL")
	return out
}

type audioTransformer struct{}

func (audioTransformer) build(c *Context) types.ComponentData {
	out := &types.AudioPlayer{Base: c.base(types.ComponentAudioPlayer)}
	if _, img := firstMatch(c.Fields, IsImageURL); img != "" {
		out.Image = img
	}
	_, src := firstMatch(c.Fields, func(s string) bool { return hasSuffixFold(s, ".mp3") })
	if src == "" {
		c.Fail(types.CodeTransformNoAudio, "no field holds an mp3 URL")
		return out
	}
	out.Src = src
	return out
}
