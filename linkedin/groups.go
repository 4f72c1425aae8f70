package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	groupFields   = "group:(id,name,category,short-description)"
	postFields    = "id,title,summary,creator:(first-name,last-name),creation-timestamp"
	commentFields = "id,text,creator:(first-name,last-name),creation-timestamp"
)

// MemberGroups lists the groups the authenticated member belongs to.
func (a *App) MemberGroups(ctx context.Context) ([]*Group, error) {
	p := fmt.Sprintf("/people/~/group-memberships:(%s)", groupFields)
	if v, ok := a.cached(p); ok {
		return v.([]*Group), nil
	}

	var groups []*Group
	err := a.list(ctx, p, func(v gjson.Result) error {
		g := v.Get("group")
		if !g.Exists() {
			g = v
		}
		group, err := decodeGroup(g)
		if err != nil {
			return err
		}
		groups = append(groups, group)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.store(p, groups)
	return groups, nil
}

// GroupPosts lists the discussions of a group.
func (a *App) GroupPosts(ctx context.Context, groupID string) ([]*Post, error) {
	p := fmt.Sprintf("/groups/%s/posts:(%s)", url.PathEscape(groupID), postFields)
	if v, ok := a.cached(p); ok {
		return v.([]*Post), nil
	}

	var posts []*Post
	err := a.list(ctx, p, func(v gjson.Result) error {
		post, err := decodePost(v)
		if err != nil {
			return err
		}
		post.GroupID = groupID
		posts = append(posts, post)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.store(p, posts)
	return posts, nil
}

// PostComments lists the comments of a discussion.
func (a *App) PostComments(ctx context.Context, postID string) ([]*Comment, error) {
	p := commentsPath(postID)
	if v, ok := a.cached(p); ok {
		return v.([]*Comment), nil
	}

	var comments []*Comment
	err := a.list(ctx, p, func(v gjson.Result) error {
		comment, err := decodeComment(v)
		if err != nil {
			return err
		}
		comment.PostID = postID
		comments = append(comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.store(p, comments)
	return comments, nil
}

// AddComment posts text as a new comment of a discussion.
func (a *App) AddComment(ctx context.Context, postID string, text string) (*Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}

	p := fmt.Sprintf("/posts/%s/comments", url.PathEscape(postID))
	body := map[string]string{"text": text}
	_, _, err := a.do(ctx, http.MethodPost, p, nil, body)
	if err != nil {
		return nil, err
	}

	a.invalidate(commentsPath(postID))

	return &Comment{
		PostID:       postID,
		Text:         text,
		CreationTime: time.Now(),
	}, nil
}

func commentsPath(postID string) string {
	return fmt.Sprintf("/posts/%s/comments:(%s)", url.PathEscape(postID), commentFields)
}

func decodeGroup(v gjson.Result) (*Group, error) {
	id := v.Get("id")
	if !id.Exists() {
		return nil, errors.Wrap(ErrInvalidDataFormat, "group without id")
	}

	category := v.Get("category")
	if code := category.Get("code"); code.Exists() {
		category = code
	}

	return &Group{
		ID:               id.String(),
		Name:             v.Get("name").String(),
		Category:         category.String(),
		ShortDescription: v.Get("shortDescription").String(),
	}, nil
}

func decodePost(v gjson.Result) (*Post, error) {
	id := v.Get("id")
	if !id.Exists() {
		return nil, errors.Wrap(ErrInvalidDataFormat, "post without id")
	}

	return &Post{
		ID:           id.String(),
		Title:        v.Get("title").String(),
		Summary:      v.Get("summary").String(),
		Creator:      decodePerson(v.Get("creator")),
		CreationTime: decodeTimestamp(v.Get("creationTimestamp")),
	}, nil
}

func decodeComment(v gjson.Result) (*Comment, error) {
	id := v.Get("id")
	if !id.Exists() {
		return nil, errors.Wrap(ErrInvalidDataFormat, "comment without id")
	}

	return &Comment{
		ID:           id.String(),
		Text:         v.Get("text").String(),
		Creator:      decodePerson(v.Get("creator")),
		CreationTime: decodeTimestamp(v.Get("creationTimestamp")),
	}, nil
}

func decodePerson(v gjson.Result) Person {
	return Person{
		FirstName: v.Get("firstName").String(),
		LastName:  v.Get("lastName").String(),
	}
}

// decodeTimestamp reads milliseconds since the epoch.
func decodeTimestamp(v gjson.Result) time.Time {
	if !v.Exists() {
		return time.Time{}
	}
	return time.UnixMilli(v.Int())
}
