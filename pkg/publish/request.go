package publish

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Content limits enforced before any browser work.
const (
	MinTitleRunes  = 2
	MaxTitleRunes  = 30
	MaxMicroRunes  = 2000
	MaxMicroImages = 9
)

// ArticleRequest is a long-form article to publish.
type ArticleRequest struct {
	Title string `json:"title"`
	// Body is plain text; each line becomes one paragraph.
	Body        string     `json:"content"`
	Images      []string   `json:"images,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Category    string     `json:"category,omitempty"`
	Cover       string     `json:"cover_image,omitempty"`
	ScheduledAt *time.Time `json:"publish_time,omitempty"`
	Original    bool       `json:"original,omitempty"`
}

// Validate checks the request shape. Local image existence is checked
// separately by the engine.
func (r ArticleRequest) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Title))
	if n < MinTitleRunes || n > MaxTitleRunes {
		return invalid("标题长度必须在%d到%d个字之间（当前%d个字）", MinTitleRunes, MaxTitleRunes, n)
	}
	if strings.TrimSpace(r.Body) == "" {
		return invalid("文章内容不能为空")
	}
	return nil
}

// CoverPath returns the image used as cover: Cover, else the first image.
func (r ArticleRequest) CoverPath() string {
	if r.Cover != "" {
		return r.Cover
	}
	if len(r.Images) > 0 {
		return r.Images[0]
	}
	return ""
}

// localPaths lists every local file the request refers to.
func (r ArticleRequest) localPaths() []string {
	paths := append([]string(nil), r.Images...)
	if r.Cover != "" {
		paths = append(paths, r.Cover)
	}
	return paths
}

// MicroPostRequest is a short post with optional images.
type MicroPostRequest struct {
	Body        string     `json:"content"`
	Images      []string   `json:"images,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Location    string     `json:"location,omitempty"`
	ScheduledAt *time.Time `json:"publish_time,omitempty"`
}

// Validate checks the request shape.
func (r MicroPostRequest) Validate() error {
	if strings.TrimSpace(r.Body) == "" {
		return invalid("微头条内容不能为空")
	}
	if n := utf8.RuneCountInString(r.Body); n > MaxMicroRunes {
		return invalid("微头条内容不能超过%d个字（当前%d个字）", MaxMicroRunes, n)
	}
	return nil
}

// Text returns the editor text with the topic prefix applied.
func (r MicroPostRequest) Text() string {
	topic := strings.TrimSpace(r.Topic)
	if topic == "" {
		return r.Body
	}
	if !strings.HasPrefix(topic, "#") {
		topic = "#" + strings.Trim(topic, "#") + "#"
	}
	return topic + " " + r.Body
}

// scheduleLayouts are the accepted schedule time formats.
var scheduleLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// ParseSchedule parses an optional schedule time. Layouts without a zone are
// read in local time. An empty string yields nil.
func ParseSchedule(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, invalid("无法解析定时发布时间: %s（格式：YYYY-MM-DD HH:MM:SS）", s)
}

// capImages drops images beyond MaxMicroImages and reports how many were dropped.
func (r *MicroPostRequest) capImages() int {
	if len(r.Images) <= MaxMicroImages {
		return 0
	}
	dropped := len(r.Images) - MaxMicroImages
	r.Images = r.Images[:MaxMicroImages]
	return dropped
}
