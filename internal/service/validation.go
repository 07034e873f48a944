package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/weiawesome/quill/internal/domain"
)

const (
	maxTitleRunes   = 200
	maxTags         = 10
	maxCommentRunes = 1000
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// postFields is a validated, normalized set of author-editable fields.
type postFields struct {
	title         string
	content       string
	category      *string
	tags          []string
	featuredImage *string
}

func (f *postFields) applyTo(p *domain.Post) {
	p.Title = f.title
	p.Content = f.content
	p.Category = f.category
	p.Tags = f.tags
	p.FeaturedImage = f.featuredImage
}

// normalizePost trims and checks the editable fields. Content is stored as
// given since the editor owns its format; it only has to be non-blank.
func normalizePost(title, content string, category *string, tags []string, featuredImage *string) (*postFields, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, invalid("title", "title must be at most %d characters", maxTitleRunes)
	}

	if strings.TrimSpace(content) == "" {
		return nil, invalid("content", "content is required")
	}

	normalizedTags := normalizeTags(tags)
	if len(normalizedTags) > maxTags {
		return nil, invalid("tags", "at most %d tags are allowed", maxTags)
	}

	return &postFields{
		title:         title,
		content:       content,
		category:      optionalString(category),
		tags:          normalizedTags,
		featuredImage: optionalString(featuredImage),
	}, nil
}

func normalizeInput(in *domain.PostInput) (*postFields, error) {
	if in == nil {
		return nil, invalid("body", "post is required")
	}
	return normalizePost(in.Title, in.Content, in.Category, in.Tags, in.FeaturedImage)
}

// normalizeTags lower-cases and trims each tag, dropping blanks and
// duplicates while keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// optionalString maps nil and blank strings to nil.
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateHandle(raw string) (string, error) {
	handle := strings.TrimSpace(raw)
	if !handlePattern.MatchString(handle) {
		return "", invalid("handle", "handle must be 3-20 characters of letters, digits, '_' or '-'")
	}
	return handle, nil
}

func validateComment(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", invalid("content", "comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxCommentRunes {
		return "", invalid("content", "comment must be at most %d characters", maxCommentRunes)
	}
	return content, nil
}

// clampLimit substitutes def for non-positive limits and caps at max.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

func requireActor(actor *domain.User) error {
	if actor == nil || actor.ID == "" {
		return ErrUnauthenticated
	}
	return nil
}
