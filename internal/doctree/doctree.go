package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title     string     // Document title (from metadata or filename)
	PageCount int        // Physical page count, 0 if unknown or not paginated
	Children  []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // 1-based source page (0 if the format has no pages)
	Children []*DocNode // Subsections
}

// Page is the plain text of one numbered page.
type Page struct {
	Number int
	Text   string
}

// Pages flattens a tree into page-numbered text. Nodes carrying a page number
// are grouped under it; formats without pages number their top-level nodes
// 1..n instead. Headings are emitted on their own line ahead of body text.
func Pages(tree *DocTree) []Page {
	if tree == nil {
		return nil
	}

	var pages []Page
	index := map[int]int{}
	for i, top := range tree.Children {
		num := top.Page
		if num <= 0 {
			num = i + 1
		}
		var sb strings.Builder
		writeNode(&sb, top)
		text := strings.TrimSpace(sb.String())

		if at, ok := index[num]; ok {
			if text != "" {
				pages[at].Text = strings.TrimSpace(pages[at].Text + "\n" + text)
			}
			continue
		}
		index[num] = len(pages)
		pages = append(pages, Page{Number: num, Text: text})
	}
	return pages
}

func writeNode(sb *strings.Builder, n *DocNode) {
	if n.Title != "" {
		sb.WriteString(n.Title)
		sb.WriteString("\n")
	}
	if n.Text != "" {
		sb.WriteString(n.Text)
		sb.WriteString("\n")
	}
	for _, c := range n.Children {
		writeNode(sb, c)
	}
}

// Builder nests headings and body text into a tree, the way a reader would
// outline a document: each heading closes every open heading at the same or a
// deeper level.
type Builder struct {
	root  *DocNode
	stack []builderEntry
	text  strings.Builder
}

type builderEntry struct {
	node  *DocNode
	level int
}

func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{
		root:  root,
		stack: []builderEntry{{node: root, level: 0}},
	}
}

// Heading opens a new section at level (1 = top).
func (b *Builder) Heading(level int, title string) {
	b.flush()
	n := &DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, builderEntry{node: n, level: level})
}

// Text appends a paragraph to the innermost open section.
func (b *Builder) Text(t string) {
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *Builder) flush() {
	t := strings.TrimSpace(b.text.String())
	if t != "" {
		top := b.stack[len(b.stack)-1].node
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	b.text.Reset()
}

// Tree closes every open section and returns the result. Text that appeared
// before the first heading becomes a leading leaf node.
func (b *Builder) Tree(title string) *DocTree {
	b.flush()
	tree := &DocTree{Title: title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}
