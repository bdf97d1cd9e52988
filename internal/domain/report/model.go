package report

import (
	"strconv"
	"time"
)

// Dir is the text direction a renderer must apply to a node's text.
type Dir string

const (
	DirRTL Dir = "rtl"
	DirLTR Dir = "ltr"
)

// DirForLang maps a language preference to its script direction.
func DirForLang(lang string) Dir {
	if lang == "ar" {
		return DirRTL
	}
	return DirLTR
}

// Kind names the structural role of a node in the document tree.
type Kind string

const (
	KindSection Kind = "section"
	KindHeading Kind = "heading"
	KindField   Kind = "field"
	KindText    Kind = "text"
	KindTable   Kind = "table"
	KindRow     Kind = "row"
	KindCell    Kind = "cell"
)

// Node is one element of the renderer-agnostic document tree. Labels are
// stable tokens a renderer translates; Text is client data carried verbatim.
// Dir tells the renderer which direction the text runs; the tree never
// contains shaped or reordered Arabic, that is entirely the renderer's job.
type Node struct {
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label,omitempty"`
	Text     string   `json:"text,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Dir      Dir      `json:"dir,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// Document is the fully assembled report. Dir is derived from the client's
// language and applies to the document chrome; individual nodes carry their
// own direction.
type Document struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Lang        string    `json:"lang"`
	Dir         Dir       `json:"dir"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []*Node   `json:"sections"`
}

// Add appends children and returns the node for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func NewSection(label string, dir Dir) *Node {
	return &Node{Kind: KindSection, Label: label, Dir: dir}
}

func NewHeading(text string, dir Dir) *Node {
	return &Node{Kind: KindHeading, Text: text, Dir: dir}
}

// NewField is a labelled value in the client's script.
func NewField(label, text string, dir Dir) *Node {
	return &Node{Kind: KindField, Label: label, Text: text, Dir: dir}
}

func NewText(text string, dir Dir) *Node {
	return &Node{Kind: KindText, Text: text, Dir: dir}
}

// NewNumberField carries a numeric value. Numbers read left to right in
// Arabic text too, so the direction is always ltr no matter the document
// language. Value keeps the exact float so renderers and tests never
// reparse the text.
func NewNumberField(label string, v float64) *Node {
	val := v
	return &Node{
		Kind:  KindField,
		Label: label,
		Text:  strconv.FormatFloat(v, 'f', -1, 64),
		Value: &val,
		Dir:   DirLTR,
	}
}

// NewDateField formats the date as YYYY-MM-DD, which is always ltr.
func NewDateField(label string, t time.Time) *Node {
	return &Node{Kind: KindField, Label: label, Text: t.Format("2006-01-02"), Dir: DirLTR}
}

func NewTable(label string) *Node {
	return &Node{Kind: KindTable, Label: label}
}

// AddRow builds a row from cells and appends it to a table node.
func (n *Node) AddRow(cells ...*Node) *Node {
	row := &Node{Kind: KindRow, Children: cells}
	n.Children = append(n.Children, row)
	return n
}

func NewCell(text string, dir Dir) *Node {
	return &Node{Kind: KindCell, Text: text, Dir: dir}
}

func NewNumberCell(v float64) *Node {
	val := v
	return &Node{
		Kind:  KindCell,
		Text:  strconv.FormatFloat(v, 'f', -1, 64),
		Value: &val,
		Dir:   DirLTR,
	}
}

func NewDateCell(t time.Time) *Node {
	return &Node{Kind: KindCell, Text: t.Format("2006-01-02"), Dir: DirLTR}
}
