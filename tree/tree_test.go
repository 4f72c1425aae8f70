package tree_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rayark/linkedgroups/internal/mock"
	"github.com/rayark/linkedgroups/linkedin"
	"github.com/rayark/linkedgroups/tree"
)

var (
	created = time.Date(2014, 5, 13, 16, 53, 0, 0, time.UTC)

	gophers = &linkedin.Group{ID: "1", Name: "Gophers", Category: "professional", ShortDescription: "All about Go"}
	rusty   = &linkedin.Group{ID: "2", Name: "Rustaceans", Category: "other"}

	generics = &linkedin.Post{
		ID:           "g-1-p-1",
		GroupID:      "1",
		Title:        "Generics",
		Summary:      "Are they here yet?",
		Creator:      linkedin.Person{FirstName: "Rob", LastName: "Pike"},
		CreationTime: created,
	}

	reply = &linkedin.Comment{
		ID:           "c-1",
		PostID:       "g-1-p-1",
		Text:         "Soon.",
		Creator:      linkedin.Person{FirstName: "Ian", LastName: "Lance Taylor"},
		CreationTime: created,
	}
)

func wait(t *testing.T, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatal("load did not finish")
		return nil
	}
}

func newTree(t *testing.T) (*tree.Tree, *mock.MockAPI) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	return tree.New(api), api
}

// loaded returns a tree whose groups are loaded, the Gophers group expanded
// to its post and the post expanded to its comment.
func loaded(t *testing.T) (*tree.Tree, *mock.MockAPI) {
	tr, api := newTree(t)
	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers, rusty}, nil)
	api.EXPECT().GroupPosts(gomock.Any(), "1").Return([]*linkedin.Post{generics}, nil)
	api.EXPECT().PostComments(gomock.Any(), "g-1-p-1").Return([]*linkedin.Comment{reply}, nil)

	ctx := context.Background()
	require.NoError(t, wait(t, tr.LoadGroups(ctx)))
	group := tr.Roots()[0]
	require.NoError(t, wait(t, tr.Expand(ctx, group)))
	post := tr.Children(group)[0]
	require.NoError(t, wait(t, tr.Expand(ctx, post)))

	return tr, api
}

func TestLoadGroups(t *testing.T) {
	tr, api := newTree(t)

	release := make(chan struct{})
	api.EXPECT().MemberGroups(gomock.Any()).DoAndReturn(func(context.Context) ([]*linkedin.Group, error) {
		<-release
		return []*linkedin.Group{gophers, rusty}, nil
	})

	done := tr.LoadGroups(context.Background())

	roots := tr.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, tree.KindPlaceholder, roots[0].Kind)
	assert.Equal(t, tree.LoadingLabel, roots[0].Label)

	close(release)
	require.NoError(t, wait(t, done))

	roots = tr.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, tree.KindGroup, roots[0].Kind)
	assert.Equal(t, "Gophers", roots[0].Label)
	assert.Same(t, gophers, roots[0].Group)
	assert.Nil(t, roots[0].Parent)
	assert.False(t, roots[0].Expanded)
	assert.Equal(t, "Rustaceans", roots[1].Label)
}

func TestLoadGroupsError(t *testing.T) {
	tr, api := newTree(t)

	failure := errors.New("boom")
	api.EXPECT().MemberGroups(gomock.Any()).Return(nil, failure)

	err := wait(t, tr.LoadGroups(context.Background()))
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, tr.Roots())
}

func TestLoadGroupsSupersedesEarlierLoad(t *testing.T) {
	tr, api := newTree(t)

	started := make(chan struct{})
	release := make(chan struct{})
	gomock.InOrder(
		api.EXPECT().MemberGroups(gomock.Any()).DoAndReturn(func(context.Context) ([]*linkedin.Group, error) {
			close(started)
			<-release
			return []*linkedin.Group{rusty}, nil
		}),
		api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil),
	)

	first := tr.LoadGroups(context.Background())
	<-started
	require.NoError(t, wait(t, tr.LoadGroups(context.Background())))
	close(release)
	require.NoError(t, wait(t, first))

	roots := tr.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "Gophers", roots[0].Label)
}

func TestExpandGroup(t *testing.T) {
	tr, api := newTree(t)
	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil)
	require.NoError(t, wait(t, tr.LoadGroups(context.Background())))
	group := tr.Roots()[0]

	release := make(chan struct{})
	api.EXPECT().GroupPosts(gomock.Any(), "1").DoAndReturn(func(context.Context, string) ([]*linkedin.Post, error) {
		<-release
		return []*linkedin.Post{generics}, nil
	})

	done := tr.Expand(context.Background(), group)

	children := tr.Children(group)
	require.Len(t, children, 1)
	assert.Equal(t, tree.KindPlaceholder, children[0].Kind)
	assert.True(t, group.Expanded)

	close(release)
	require.NoError(t, wait(t, done))

	children = tr.Children(group)
	require.Len(t, children, 1)
	assert.Equal(t, tree.KindPost, children[0].Kind)
	assert.Equal(t, "Generics", children[0].Label)
	assert.Same(t, group, children[0].Parent)
}

func TestExpandPost(t *testing.T) {
	tr, _ := loaded(t)

	post := tr.Children(tr.Roots()[0])[0]
	comments := tr.Children(post)
	require.Len(t, comments, 1)
	assert.Equal(t, tree.KindComment, comments[0].Kind)
	assert.Equal(t, "Soon.", comments[0].Label)
	assert.Same(t, post, comments[0].Parent)
}

func TestExpandCommentLabelIsLimited(t *testing.T) {
	tr, api := loaded(t)
	post := tr.Children(tr.Roots()[0])[0]

	long := &linkedin.Comment{ID: "c-2", Text: "This is a rather long comment that certainly goes past the sixty four characters of a label."}
	api.EXPECT().PostComments(gomock.Any(), "g-1-p-1").Return([]*linkedin.Comment{long}, nil)
	require.NoError(t, wait(t, tr.Expand(context.Background(), post)))

	label := tr.Children(post)[0].Label
	assert.Len(t, []rune(label), tree.CommentLabelLength)
	assert.Equal(t, "This is a rather long comment that certainly goes past the si...", label)
}

func TestExpandError(t *testing.T) {
	tr, api := newTree(t)
	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil)
	require.NoError(t, wait(t, tr.LoadGroups(context.Background())))
	group := tr.Roots()[0]

	failure := &linkedin.APIError{Status: linkedin.StatusExpiredToken, HTTPStatus: 401}
	api.EXPECT().GroupPosts(gomock.Any(), "1").Return(nil, failure)

	err := wait(t, tr.Expand(context.Background(), group))
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, tr.Children(group))
}

func TestExpandNothingToLoad(t *testing.T) {
	tr, _ := loaded(t)

	comment := tr.Children(tr.Children(tr.Roots()[0])[0])[0]
	assert.NoError(t, wait(t, tr.Expand(context.Background(), comment)))
}

func TestExpandSupersedesEarlierExpand(t *testing.T) {
	tr, api := newTree(t)
	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil)
	require.NoError(t, wait(t, tr.LoadGroups(context.Background())))
	group := tr.Roots()[0]

	stale := &linkedin.Post{ID: "old", Title: "Stale"}
	started := make(chan struct{})
	release := make(chan struct{})
	gomock.InOrder(
		api.EXPECT().GroupPosts(gomock.Any(), "1").DoAndReturn(func(context.Context, string) ([]*linkedin.Post, error) {
			close(started)
			<-release
			return []*linkedin.Post{stale}, nil
		}),
		api.EXPECT().GroupPosts(gomock.Any(), "1").Return([]*linkedin.Post{generics}, nil),
	)

	first := tr.Expand(context.Background(), group)
	<-started
	require.NoError(t, wait(t, tr.Expand(context.Background(), group)))
	close(release)
	require.NoError(t, wait(t, first))

	children := tr.Children(group)
	require.Len(t, children, 1)
	assert.Equal(t, "Generics", children[0].Label)
}

func TestAddCommentWhileCommentsLoad(t *testing.T) {
	tr, api := newTree(t)
	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil)
	api.EXPECT().GroupPosts(gomock.Any(), "1").Return([]*linkedin.Post{generics}, nil)

	ctx := context.Background()
	require.NoError(t, wait(t, tr.LoadGroups(ctx)))
	group := tr.Roots()[0]
	require.NoError(t, wait(t, tr.Expand(ctx, group)))
	post := tr.Children(group)[0]

	started := make(chan struct{})
	release := make(chan struct{})
	api.EXPECT().PostComments(gomock.Any(), "g-1-p-1").DoAndReturn(func(context.Context, string) ([]*linkedin.Comment, error) {
		close(started)
		<-release
		return []*linkedin.Comment{reply}, nil
	})
	api.EXPECT().AddComment(gomock.Any(), "g-1-p-1", "Me too").Return(&linkedin.Comment{Text: "Me too"}, nil)

	done := tr.Expand(ctx, post)
	<-started
	tr.Select(post)
	added, err := tr.AddComment(ctx, "Me too")
	require.NoError(t, err)
	close(release)
	require.NoError(t, wait(t, done))

	children := tr.Children(post)
	require.Len(t, children, 2)
	assert.Equal(t, "Soon.", children[0].Label)
	assert.Same(t, added, children[1])
	assert.Same(t, added, tr.Selected())

	var labels []string
	for _, l := range tr.Lines() {
		labels = append(labels, l.Node.Label)
	}
	assert.Equal(t, []string{"Gophers", "Generics", "Soon.", "Me too"}, labels)
}

func TestExpandDetachedNode(t *testing.T) {
	tr, api := loaded(t)
	group := tr.Roots()[0]

	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil)
	require.NoError(t, wait(t, tr.LoadGroups(context.Background())))

	err := wait(t, tr.Expand(context.Background(), group))
	assert.ErrorIs(t, err, tree.ErrNotAttached)
}

func TestSelect(t *testing.T) {
	tr, _ := loaded(t)
	group := tr.Roots()[0]
	post := tr.Children(group)[0]
	comment := tr.Children(post)[0]

	details := tr.Select(group)
	assert.Equal(t, "Group: Gophers\n\nCategory: professional\n\nDescription: All about Go", details.Info)
	assert.False(t, details.CanComment)
	assert.Same(t, group, tr.Selected())

	details = tr.Select(post)
	assert.Equal(t, "Title: Generics\n\nBy: Rob Pike\n\nOn: 2014-05-13 16:53\n\nSummary: Are they here yet?", details.Info)
	assert.True(t, details.CanComment)

	details = tr.Select(comment)
	assert.Equal(t, "By: Ian Lance Taylor\n\nOn: 2014-05-13 16:53\n\nSoon.", details.Info)
	assert.True(t, details.CanComment)
	assert.Equal(t, details, tr.Details())

	// a group has no comment box
	assert.False(t, tr.Select(tr.Roots()[1]).CanComment)
}

func TestAddComment(t *testing.T) {
	tr, api := loaded(t)
	post := tr.Children(tr.Roots()[0])[0]

	api.EXPECT().AddComment(gomock.Any(), "g-1-p-1", "Me too").Return(&linkedin.Comment{PostID: "g-1-p-1", Text: "Me too"}, nil)

	tr.Select(post)
	node, err := tr.AddComment(context.Background(), "Me too")
	require.NoError(t, err)

	assert.Equal(t, tree.KindComment, node.Kind)
	assert.Same(t, post, node.Parent)
	assert.Same(t, node, tr.Selected())

	children := tr.Children(post)
	require.Len(t, children, 2)
	assert.Same(t, node, children[1])

	details := tr.Details()
	assert.Equal(t, "Me too", details.Info)
	assert.True(t, details.CanComment)
}

func TestAddCommentFromSelectedComment(t *testing.T) {
	tr, api := loaded(t)
	post := tr.Children(tr.Roots()[0])[0]
	comment := tr.Children(post)[0]

	api.EXPECT().AddComment(gomock.Any(), "g-1-p-1", "Agreed").Return(&linkedin.Comment{Text: "Agreed"}, nil)

	tr.Select(comment)
	node, err := tr.AddComment(context.Background(), "Agreed")
	require.NoError(t, err)
	assert.Same(t, post, node.Parent)
}

func TestAddCommentWithoutPost(t *testing.T) {
	tr, _ := loaded(t)

	_, err := tr.AddComment(context.Background(), "hello")
	assert.ErrorIs(t, err, tree.ErrNoPostSelected)

	tr.Select(tr.Roots()[0])
	_, err = tr.AddComment(context.Background(), "hello")
	assert.ErrorIs(t, err, tree.ErrNoPostSelected)
}

func TestAddCommentError(t *testing.T) {
	tr, api := loaded(t)
	post := tr.Children(tr.Roots()[0])[0]

	failure := errors.New("throttled")
	api.EXPECT().AddComment(gomock.Any(), "g-1-p-1", "again").Return(nil, failure)

	tr.Select(post)
	_, err := tr.AddComment(context.Background(), "again")
	assert.ErrorIs(t, err, failure)
	assert.Len(t, tr.Children(post), 1)
	assert.Same(t, post, tr.Selected())
}

func TestReloadClearsSelection(t *testing.T) {
	tr, api := loaded(t)
	post := tr.Children(tr.Roots()[0])[0]
	tr.Select(post)

	api.EXPECT().MemberGroups(gomock.Any()).Return([]*linkedin.Group{gophers}, nil)
	require.NoError(t, wait(t, tr.LoadGroups(context.Background())))

	assert.Nil(t, tr.Selected())
	assert.Equal(t, tree.Details{}, tr.Details())

	_, err := tr.AddComment(context.Background(), "late")
	assert.ErrorIs(t, err, tree.ErrNoPostSelected)
}

func TestExpandClearsSelectionBelow(t *testing.T) {
	tr, api := loaded(t)
	group := tr.Roots()[0]
	post := tr.Children(group)[0]
	tr.Select(tr.Children(post)[0])

	api.EXPECT().GroupPosts(gomock.Any(), "1").Return([]*linkedin.Post{generics}, nil)
	require.NoError(t, wait(t, tr.Expand(context.Background(), group)))

	assert.Nil(t, tr.Selected())
	assert.False(t, tr.Details().CanComment)
}

func TestLines(t *testing.T) {
	tr, _ := loaded(t)

	var labels []string
	var depths []int
	for _, l := range tr.Lines() {
		labels = append(labels, l.Node.Label)
		depths = append(depths, l.Depth)
	}

	assert.Equal(t, []string{"Gophers", "Generics", "Soon.", "Rustaceans"}, labels)
	assert.Equal(t, []int{0, 1, 2, 0}, depths)
}

func TestLimitLength(t *testing.T) {
	testCases := []struct {
		s        string
		n        int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated text", 10, "truncat..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, ""},
		{"abcdef", -1, ""},
		{"", -5, ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tree.LimitLength(tc.s, tc.n), "%q limited to %d", tc.s, tc.n)
	}
}
