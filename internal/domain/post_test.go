package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVisibilityState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		post Post
		want Visibility
	}{
		{"draft", Post{Status: PostStatusDraft}, VisibilityDraft},
		{"draft with schedule", Post{Status: PostStatusDraft, ScheduledFor: &future}, VisibilityDraft},
		{"published", Post{Status: PostStatusPublished}, VisibilityLive},
		{"published past schedule", Post{Status: PostStatusPublished, ScheduledFor: &past}, VisibilityLive},
		{"published at schedule instant", Post{Status: PostStatusPublished, ScheduledFor: &now}, VisibilityLive},
		{"published future schedule", Post{Status: PostStatusPublished, ScheduledFor: &future}, VisibilityScheduled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VisibilityState(&tc.post, now))
		})
	}
}

func TestPostPatchApply(t *testing.T) {
	title := "New"
	tags := []string{"x"}
	p := &Post{Title: "Old", Content: "Body", Tags: []string{"a"}}

	(&PostPatch{Title: &title, Tags: &tags}).Apply(p)

	assert.Equal(t, "New", p.Title)
	assert.Equal(t, "Body", p.Content, "unsupplied fields are untouched")
	assert.Equal(t, []string{"x"}, p.Tags)
}

func TestPostModelRoundTrip(t *testing.T) {
	cat := "go"
	p := &Post{ID: "p1", AuthorID: "u1", Title: "T", Content: "C", Category: &cat, Status: PostStatusPublished}

	got := PostToModel(p).ToDomain()

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, PostStatusPublished, got.Status)
	assert.Equal(t, []string{}, got.Tags, "nil tags read back as empty")
	assert.Equal(t, "go", *got.Category)
}
