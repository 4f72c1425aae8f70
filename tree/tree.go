// Package tree holds the lazily loaded group → post → comment tree of the
// browser and the selection the comment box acts on.
package tree

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/rayark/linkedgroups/linkedin"
)

//go:generate mockgen -destination=../internal/mock/api.go -package=mock github.com/rayark/linkedgroups/tree API

const (
	LoadingLabel = "Loading..."

	// CommentLabelLength bounds the label of a comment node.
	CommentLabelLength = 64

	timeLayout = "2006-01-02 15:04"
)

var (
	ErrNoPostSelected = errors.New("no post selected")
	ErrNotAttached    = errors.New("node is not part of the tree")
)

// API is the part of the LinkedIn client the tree loads from.
type API interface {
	MemberGroups(ctx context.Context) ([]*linkedin.Group, error)
	GroupPosts(ctx context.Context, groupID string) ([]*linkedin.Post, error)
	PostComments(ctx context.Context, postID string) ([]*linkedin.Comment, error)
	AddComment(ctx context.Context, postID string, text string) (*linkedin.Comment, error)
}

// Details is what the info pane shows for the selected node.
type Details struct {
	Info       string
	CanComment bool
}

// Tree is safe for concurrent use; loads run in the background and replace
// the placeholder they put in place when they finish.
type Tree struct {
	api API

	mu           sync.Mutex
	roots        []*Node
	rootGen      int
	selected     *Node
	selectedPost *Node
	details      Details
}

func New(api API) *Tree {
	return &Tree{api: api}
}

// Roots returns the top level nodes.
func (t *Tree) Roots() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Node(nil), t.roots...)
}

// Children returns the children of n.
func (t *Tree) Children(n *Node) []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Node(nil), n.children...)
}

// Selected returns the selected node, nil when nothing is selected.
func (t *Tree) Selected() *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected
}

// Details returns the info of the selected node.
func (t *Tree) Details() Details {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.details
}

// LoadGroups replaces the roots with a placeholder and loads the member's
// groups in the background. The returned channel yields the outcome once.
func (t *Tree) LoadGroups(ctx context.Context) <-chan error {
	t.mu.Lock()
	t.rootGen++
	gen := t.rootGen
	t.roots = []*Node{newPlaceholder(nil)}
	t.clearSelection(nil)
	t.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer close(done)

		groups, err := t.api.MemberGroups(ctx)

		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != t.rootGen {
			done <- nil
			return
		}
		if err != nil {
			t.roots = nil
			done <- err
			return
		}

		roots := make([]*Node, 0, len(groups))
		for _, g := range groups {
			roots = append(roots, newGroupNode(g))
		}
		t.roots = roots
		log.WithField("count", len(roots)).Debug("groups loaded")
		done <- nil
	}()

	return done
}

// Expand loads the children of a group (its posts) or of a post (its
// comments). Other nodes have nothing to load. A later Expand of the same
// node supersedes an earlier one still in flight.
func (t *Tree) Expand(ctx context.Context, n *Node) <-chan error {
	done := make(chan error, 1)

	var load func() ([]*Node, error)
	switch n.Kind {
	case KindGroup:
		load = func() ([]*Node, error) {
			posts, err := t.api.GroupPosts(ctx, n.Group.ID)
			if err != nil {
				return nil, err
			}
			nodes := make([]*Node, 0, len(posts))
			for _, p := range posts {
				nodes = append(nodes, newPostNode(n, p))
			}
			return nodes, nil
		}
	case KindPost:
		load = func() ([]*Node, error) {
			comments, err := t.api.PostComments(ctx, n.Post.ID)
			if err != nil {
				return nil, err
			}
			nodes := make([]*Node, 0, len(comments))
			for _, c := range comments {
				nodes = append(nodes, newCommentNode(n, c))
			}
			return nodes, nil
		}
	default:
		done <- nil
		close(done)
		return done
	}

	t.mu.Lock()
	if !t.attached(n) {
		t.mu.Unlock()
		done <- ErrNotAttached
		close(done)
		return done
	}
	n.generation++
	gen := n.generation
	t.clearSelection(n)
	n.children = []*Node{newPlaceholder(n)}
	n.Expanded = true
	t.mu.Unlock()

	go func() {
		defer close(done)

		children, err := load()

		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != n.generation {
			done <- nil
			return
		}

		// comments posted while the load was in flight stay after it
		added := addedDuringLoad(n.children)
		if err != nil {
			n.children = added
			done <- err
			return
		}

		n.children = append(children, added...)
		log.WithFields(log.Fields{"node": n.Label, "count": len(children)}).Debug("children loaded")
		done <- nil
	}()

	return done
}

// Select makes n the selected node and returns the info to show for it.
// Selecting a post, or one of its comments, targets that post with the
// comment box.
func (t *Tree) Select(n *Node) Details {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.selected = n
	switch n.Kind {
	case KindGroup:
		t.selectedPost = nil
		t.details = Details{Info: groupInfo(n.Group)}
	case KindPost:
		t.selectedPost = n
		t.details = Details{Info: postInfo(n.Post), CanComment: true}
	case KindComment:
		t.selectedPost = n.Parent
		t.details = Details{Info: commentInfo(n.Comment), CanComment: n.Parent != nil}
	default:
		t.selectedPost = nil
		t.details = Details{}
	}

	return t.details
}

// AddComment posts text to the selected post, then appends and selects a node
// for the new comment.
func (t *Tree) AddComment(ctx context.Context, text string) (*Node, error) {
	t.mu.Lock()
	postNode := t.selectedPost
	t.mu.Unlock()

	if postNode == nil {
		return nil, ErrNoPostSelected
	}

	comment, err := t.api.AddComment(ctx, postNode.Post.ID, text)
	if err != nil {
		return nil, err
	}
	if comment.Text == "" {
		comment.Text = text
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	child := newCommentNode(postNode, comment)
	postNode.children = append(postNode.children, child)
	postNode.Expanded = true
	t.selected = child
	t.selectedPost = postNode
	t.details = Details{Info: text, CanComment: true}

	return child, nil
}

// addedDuringLoad returns the nodes of children other than the load
// placeholder.
func addedDuringLoad(children []*Node) []*Node {
	var added []*Node
	for _, c := range children {
		if c.Kind != KindPlaceholder {
			added = append(added, c)
		}
	}
	return added
}

// attached reports whether n can be reached from the roots. Call with the
// lock held.
func (t *Tree) attached(n *Node) bool {
	root := n
	for root.Parent != nil {
		p := root.Parent
		found := false
		for _, c := range p.children {
			if c == root {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		root = p
	}
	for _, r := range t.roots {
		if r == root {
			return true
		}
	}
	return false
}

// clearSelection drops a selection that lies below n, which is about to
// lose its children; nil means the whole tree. Call with the lock held.
func (t *Tree) clearSelection(n *Node) {
	if t.selected != nil && t.selected != n && isBelow(t.selected, n) {
		t.selected = nil
		t.details = Details{}
	}
	if t.selectedPost != nil && t.selectedPost != n && isBelow(t.selectedPost, n) {
		t.selectedPost = nil
		t.details.CanComment = false
	}
}

func isBelow(n *Node, ancestor *Node) bool {
	if ancestor == nil {
		return true
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func groupInfo(g *linkedin.Group) string {
	return strings.Join([]string{
		"Group: " + g.Name,
		"Category: " + g.Category,
		"Description: " + g.ShortDescription,
	}, "\n\n")
}

func postInfo(p *linkedin.Post) string {
	return strings.Join([]string{
		"Title: " + p.Title,
		"By: " + p.Creator.Name(),
		"On: " + p.CreationTime.Format(timeLayout),
		"Summary: " + p.Summary,
	}, "\n\n")
}

func commentInfo(c *linkedin.Comment) string {
	return strings.Join([]string{
		"By: " + c.Creator.Name(),
		"On: " + c.CreationTime.Format(timeLayout),
		c.Text,
	}, "\n\n")
}

// LimitLength shortens s to at most n characters, ending with "..." when it
// had to cut.
func LimitLength(s string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// Line is a visible node with its depth, in display order.
type Line struct {
	Node     *Node
	Depth    int
	Expanded bool
}

// Lines flattens the expanded part of the tree.
func (t *Tree) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()

	var lines []Line
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			lines = append(lines, Line{Node: n, Depth: depth, Expanded: n.Expanded})
			if n.Expanded {
				walk(n.children, depth+1)
			}
		}
	}
	walk(t.roots, 0)

	return lines
}
