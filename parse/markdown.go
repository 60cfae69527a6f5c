// Package parse upcasts HTML and Markdown into model documents.
package parse

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rgonek/linkit/model"
)

type markdownState struct {
	source []byte
}

// Markdown parses GitHub flavored Markdown into a document. HTML blocks go
// through the HTML parser, so template elements can be written inline.
func Markdown(source []byte) (model.Doc, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(source))

	s := &markdownState{source: source}
	content, err := s.convertBlockChildren(root)
	if err != nil {
		return model.Doc{}, err
	}
	return model.Doc{Version: 1, Type: model.TypeDoc, Content: content}, nil
}

func (s *markdownState) convertBlockChildren(parent ast.Node) ([]*model.Node, error) {
	var content []*model.Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		converted, err := s.convertBlockNode(child)
		if err != nil {
			return nil, err
		}
		content = append(content, converted...)
	}
	return content, nil
}

func (s *markdownState) convertBlockNode(node ast.Node) ([]*model.Node, error) {
	switch typed := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		inline := s.convertInlineChildren(typed, newMarkStack())
		if len(inline) == 0 {
			return nil, nil
		}
		return []*model.Node{model.NewElement("paragraph", nil, inline...)}, nil

	case *ast.Heading:
		inline := s.convertInlineChildren(typed, newMarkStack())
		return []*model.Node{model.NewElement("heading", map[string]any{"level": typed.Level}, inline...)}, nil

	case *ast.Blockquote:
		children, err := s.convertBlockChildren(typed)
		if err != nil {
			return nil, err
		}
		return []*model.Node{model.NewElement("blockquote", nil, children...)}, nil

	case *ast.ThematicBreak:
		return []*model.Node{model.NewElement("rule", nil)}, nil

	case *ast.HTMLBlock:
		var buf bytes.Buffer
		lines := typed.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			buf.Write(segment.Value(s.source))
		}
		if typed.HasClosure() {
			buf.Write(typed.ClosureLine.Value(s.source))
		}
		doc, err := HTML(&buf)
		if err != nil {
			return nil, err
		}
		return doc.Content, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var buf strings.Builder
		lines := typed.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			buf.Write(segment.Value(s.source))
		}
		code := model.NewText(strings.TrimSuffix(buf.String(), "\n"), model.Mark{Type: "code"})
		return []*model.Node{model.NewElement("paragraph", nil, code)}, nil

	default:
		if node.HasChildren() {
			return s.convertBlockChildren(node)
		}
		return nil, nil
	}
}

func (s *markdownState) convertInlineChildren(parent ast.Node, stack *markStack) []*model.Node {
	var content []*model.Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		for _, node := range s.convertInlineNode(child, stack) {
			content = appendInlineNode(content, node)
		}
	}
	return content
}

func (s *markdownState) convertInlineNode(node ast.Node, stack *markStack) []*model.Node {
	switch typed := node.(type) {
	case *ast.Text:
		var content []*model.Node
		if value := string(typed.Value(s.source)); value != "" {
			content = append(content, model.NewText(value, stack.current()...))
		}
		if typed.HardLineBreak() {
			content = append(content, model.NewElement("hardBreak", nil))
		} else if typed.SoftLineBreak() {
			content = append(content, model.NewText(" ", stack.current()...))
		}
		return content

	case *ast.String:
		return []*model.Node{model.NewText(string(typed.Value), stack.current()...)}

	case *ast.Emphasis:
		markType := "em"
		if typed.Level >= 2 {
			markType = "strong"
		}
		return s.withMark(typed, stack, model.Mark{Type: markType})

	case *extast.Strikethrough:
		return s.withMark(typed, stack, model.Mark{Type: "strike"})

	case *ast.CodeSpan:
		return s.withMark(typed, stack, model.Mark{Type: "code"})

	case *ast.Link:
		href := strings.TrimSpace(string(typed.Destination))
		if href == "" {
			return s.convertInlineChildren(typed, stack)
		}
		mark := model.Mark{Type: "link", Attrs: map[string]any{"href": href}}
		if title := strings.TrimSpace(string(typed.Title)); title != "" {
			mark.Attrs["title"] = title
		}
		return s.withMark(typed, stack, mark)

	case *ast.AutoLink:
		href := string(typed.URL(s.source))
		stack.push(model.Mark{Type: "link", Attrs: map[string]any{"href": href}})
		content := []*model.Node{model.NewText(string(typed.Label(s.source)), stack.current()...)}
		stack.popByType("link")
		return content

	case *ast.Image:
		alt := strings.TrimSpace(string(typed.Text(s.source)))
		if alt == "" {
			return nil
		}
		return []*model.Node{model.NewText(alt, stack.current()...)}

	case *ast.RawHTML:
		return nil

	default:
		if node.HasChildren() {
			return s.convertInlineChildren(node, stack)
		}
		return nil
	}
}

func (s *markdownState) withMark(node ast.Node, stack *markStack, mark model.Mark) []*model.Node {
	stack.push(mark)
	content := s.convertInlineChildren(node, stack)
	stack.popByType(mark.Type)
	return content
}
