package tree

import "github.com/rayark/linkedgroups/linkedin"

type Kind int

const (
	KindPlaceholder Kind = iota
	KindGroup
	KindPost
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindPost:
		return "post"
	case KindComment:
		return "comment"
	default:
		return "placeholder"
	}
}

// Node is one entry of the tree. Exactly one of Group, Post and Comment is
// set, matching Kind; a placeholder carries none.
type Node struct {
	Kind     Kind
	Label    string
	Group    *linkedin.Group
	Post     *linkedin.Post
	Comment  *linkedin.Comment
	Parent   *Node
	Expanded bool

	children   []*Node
	generation int
}

func newPlaceholder(parent *Node) *Node {
	return &Node{Kind: KindPlaceholder, Label: LoadingLabel, Parent: parent}
}

func newGroupNode(g *linkedin.Group) *Node {
	return &Node{Kind: KindGroup, Label: g.Name, Group: g}
}

func newPostNode(parent *Node, p *linkedin.Post) *Node {
	return &Node{Kind: KindPost, Label: p.Title, Post: p, Parent: parent}
}

func newCommentNode(parent *Node, c *linkedin.Comment) *Node {
	return &Node{Kind: KindComment, Label: LimitLength(c.Text, CommentLabelLength), Comment: c, Parent: parent}
}
