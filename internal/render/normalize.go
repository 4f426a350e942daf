// internal/render/normalize.go
package render

import (
	"regexp"
	"strings"
)

// BlockKind is the shape a free-text field is rendered as.
type BlockKind int

const (
	Plain BlockKind = iota
	Bulleted
	Numbered
)

func (k BlockKind) String() string {
	switch k {
	case Bulleted:
		return "bulleted"
	case Numbered:
		return "numbered"
	default:
		return "plain"
	}
}

// Block is a classified text field. Plain blocks carry Text; list blocks
// carry Items with their markers removed.
type Block struct {
	Kind  BlockKind
	Text  string
	Items []string
}

func (b Block) IsPlain() bool    { return b.Kind == Plain }
func (b Block) IsNumbered() bool { return b.Kind == Numbered }
func (b Block) IsBulleted() bool { return b.Kind == Bulleted }

// IsEmpty reports whether the block renders nothing.
func (b Block) IsEmpty() bool {
	return b.Kind == Plain && b.Text == ""
}

var (
	inlineMarker   = regexp.MustCompile(`\d+[.)]`)
	splitMarker    = regexp.MustCompile(`\s(\d+[.)])`)
	numberPrefix   = regexp.MustCompile(`^\d+[.)]`)
	letterPrefix   = regexp.MustCompile(`(?i)^[a-z][.)]`)
	numberStrip    = regexp.MustCompile(`^\d+[.)]\s*`)
	letterStrip    = regexp.MustCompile(`(?i)^[a-z][.)]\s*`)
	bulletStrip    = regexp.MustCompile(`^[-*•+]\s*`)
	lineBreakSplit = regexp.MustCompile(`\r?\n`)
)

// Classify decides how text is displayed:
//
//  1. blank text is an empty Plain block;
//  2. single-line text containing "N." or "N)" markers is split before every
//     marker that follows whitespace;
//  3. one line or less stays Plain with the text unchanged;
//  4. if any line starts with "N." / "N)" or a letter marker the whole field
//     is Numbered;
//  5. otherwise it is Bulleted.
func Classify(text string) Block {
	if strings.TrimSpace(text) == "" {
		return Block{Kind: Plain}
	}

	raw := text
	if !strings.Contains(raw, "\n") && inlineMarker.MatchString(raw) {
		raw = splitMarker.ReplaceAllString(raw, "\n$1")
	}

	var lines []string
	for _, l := range lineBreakSplit.Split(raw, -1) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) <= 1 {
		return Block{Kind: Plain, Text: text}
	}

	numbered := false
	for _, l := range lines {
		if numberPrefix.MatchString(l) || letterPrefix.MatchString(l) {
			numbered = true
			break
		}
	}

	items := make([]string, len(lines))
	if numbered {
		for i, l := range lines {
			l = numberStrip.ReplaceAllString(l, "")
			l = letterStrip.ReplaceAllString(l, "")
			l = bulletStrip.ReplaceAllString(l, "")
			items[i] = strings.TrimSpace(l)
		}
		return Block{Kind: Numbered, Items: items}
	}

	for i, l := range lines {
		items[i] = strings.TrimSpace(bulletStrip.ReplaceAllString(l, ""))
	}
	return Block{Kind: Bulleted, Items: items}
}

// ClassifyList joins items with newlines and classifies the result.
func ClassifyList(items []string) Block {
	return Classify(strings.Join(items, "\n"))
}
