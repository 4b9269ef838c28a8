// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

const (
	// maxReportedSyntaxErrors caps the per-file syntax error list.
	maxReportedSyntaxErrors = 20

	// maxTypeNesting bounds recursion into nested type declarations.
	maxTypeNesting = 64
)

// JavaParserOption configures a JavaParser instance.
type JavaParserOption func(*JavaParser)

// WithJavaMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Non-positive values are ignored.
//
// Example:
//
//	parser := NewJavaParser(WithJavaMaxFileSize(2 * 1024 * 1024)) // 2MB limit
func WithJavaMaxFileSize(bytes int64) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// JavaParser extracts declaration outlines from Java source code.
//
// Description:
//
//	JavaParser uses tree-sitter to parse Java source files. It records
//	package and import declarations, every (nested) type declaration with
//	its modifiers, annotations, type parameters, supertypes, fields,
//	methods, constructors, enum constants and record components. Method
//	bodies are skipped.
//
// Thread Safety:
//
//	JavaParser instances are safe for concurrent use. Each Parse call
//	creates its own tree-sitter parser.
//
// Example:
//
//	parser := NewJavaParser()
//	unit, err := parser.Parse(ctx, []byte("package a; class A {}"), "a/A.java")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(unit.Types[0].Name)
type JavaParser struct {
	maxFileSize int64
}

// NewJavaParser creates a JavaParser with the given options.
func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts the declaration outline of one Java source file.
//
// Description:
//
//	The parser is error-tolerant: syntactically invalid input yields a
//	partial unit whose Errors field lists the problems.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw Java source bytes. Must be valid UTF-8.
//   - filePath: Path used in errors and in the returned unit.
//
// Outputs:
//   - *CompilationUnit: The extracted outline. Never nil on success.
//   - error: Non-nil for complete failures:
//   - ErrFileTooLarge: content exceeds the size limit
//   - ErrInvalidContent: content is not valid UTF-8
//   - Context errors: ctx was canceled
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*CompilationUnit, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("parse canceled before start: %w", err)
		recordParseFailure(span, start, err)
		return nil, err
	}

	if int64(len(content)) > p.maxFileSize {
		err := fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
		recordParseFailure(span, start, err)
		return nil, err
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		err := fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
		recordParseFailure(span, start, err)
		return nil, err
	}

	hash := sha256.Sum256(content)

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		err = fmt.Errorf("tree-sitter parse failed: %w", err)
		recordParseFailure(span, start, err)
		return nil, err
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("parse canceled after tree-sitter: %w", err)
		recordParseFailure(span, start, err)
		return nil, err
	}

	unit := &CompilationUnit{
		FilePath:      filePath,
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: time.Now().UnixMilli(),
	}

	root := tree.RootNode()
	if root == nil {
		unit.Errors = append(unit.Errors, "tree-sitter returned nil root node")
		return unit, nil
	}
	if root.HasError() {
		collectSyntaxErrors(root, unit)
	}

	w := &javaWalker{content: content}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_declaration":
			unit.Package = w.packageName(child)
		case "import_declaration":
			if imp, ok := w.importDecl(child); ok {
				unit.Imports = append(unit.Imports, imp)
			}
		default:
			if decl := w.typeDecl(child, 0); decl != nil {
				unit.Types = append(unit.Types, decl)
			}
		}
	}

	if err := unit.Validate(); err != nil {
		err = fmt.Errorf("result validation failed: %w", err)
		recordParseFailure(span, start, err)
		return nil, err
	}

	count := countTypes(unit.Types)
	setParseSpanResult(span, count, len(unit.Errors))
	recordParseSuccess(start, count)

	return unit, nil
}

// Extensions returns the file extensions this parser handles.
func (p *JavaParser) Extensions() []string {
	return []string{".java"}
}

func countTypes(decls []*TypeDecl) int {
	n := len(decls)
	for _, d := range decls {
		n += countTypes(d.Nested)
	}
	return n
}

// collectSyntaxErrors records ERROR and missing nodes by line.
func collectSyntaxErrors(root *sitter.Node, unit *CompilationUnit) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if len(unit.Errors) >= maxReportedSyntaxErrors {
			return
		}
		switch {
		case n.Type() == "ERROR":
			unit.Errors = append(unit.Errors, fmt.Sprintf("line %d: syntax error", n.StartPoint().Row+1))
			return
		case n.IsMissing():
			unit.Errors = append(unit.Errors, fmt.Sprintf("line %d: missing %s", n.StartPoint().Row+1, n.Type()))
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if len(unit.Errors) == 0 {
		unit.Errors = append(unit.Errors, "source contains syntax errors")
	}
}

// javaWalker holds the source bytes while extracting declarations.
type javaWalker struct {
	content []byte
}

func (w *javaWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *javaWalker) location(n *sitter.Node) Location {
	return Location{
		StartLine: int(n.StartPoint().Row + 1),
		EndLine:   int(n.EndPoint().Row + 1),
	}
}

func (w *javaWalker) packageName(node *sitter.Node) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "scoped_identifier":
			return compactName(w.text(child))
		}
	}
	return ""
}

func (w *javaWalker) importDecl(node *sitter.Node) (Import, bool) {
	imp := Import{Line: int(node.StartPoint().Row + 1)}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			imp.Static = true
		case "asterisk":
			imp.OnDemand = true
		case "identifier", "scoped_identifier":
			imp.Name = compactName(w.text(child))
		}
	}
	return imp, imp.Name != ""
}

// typeDecl extracts any of the five type declaration forms, or returns nil
// for other nodes.
func (w *javaWalker) typeDecl(node *sitter.Node, depth int) *TypeDecl {
	var kind DeclKind
	switch node.Type() {
	case "class_declaration":
		kind = DeclClass
	case "interface_declaration":
		kind = DeclInterface
	case "enum_declaration":
		kind = DeclEnum
	case "record_declaration":
		kind = DeclRecord
	case "annotation_type_declaration":
		kind = DeclAnnotation
	default:
		return nil
	}
	if depth > maxTypeNesting {
		return nil
	}

	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return nil
	}
	decl := &TypeDecl{
		Name:     name,
		Kind:     kind,
		Location: w.location(node),
	}

	var body *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			decl.Modifiers, decl.Annotations = w.modifiers(child)
		case "type_parameters":
			decl.TypeParams = w.typeParameters(child)
		case "superclass":
			decl.Superclass = w.firstType(child)
		case "super_interfaces", "extends_interfaces":
			decl.Interfaces = append(decl.Interfaces, w.typeList(child)...)
		case "formal_parameters":
			if kind == DeclRecord {
				decl.RecordComponents = w.formalParameters(child)
			}
		case "class_body", "interface_body", "enum_body", "annotation_type_body":
			body = child
		}
	}

	if body != nil {
		w.body(body, decl, depth)
	}
	return decl
}

// body extracts members from any of the four body forms.
func (w *javaWalker) body(body *sitter.Node, decl *TypeDecl, depth int) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "enum_constant":
			mods := child.NamedChild(0)
			var annotations []string
			if mods != nil && mods.Type() == "modifiers" {
				_, annotations = w.modifiers(mods)
			}
			decl.EnumConstants = append(decl.EnumConstants, EnumConstant{
				Name:        w.text(child.ChildByFieldName("name")),
				Annotations: annotations,
				Line:        int(child.StartPoint().Row + 1),
			})
		case "enum_body_declarations":
			w.body(child, decl, depth)
		case "field_declaration", "constant_declaration":
			decl.Fields = append(decl.Fields, w.fieldDecls(child)...)
		case "method_declaration":
			decl.Methods = append(decl.Methods, w.methodDecl(child, false))
		case "constructor_declaration":
			decl.Methods = append(decl.Methods, w.methodDecl(child, true))
		case "annotation_type_element_declaration":
			decl.Methods = append(decl.Methods, w.annotationElement(child))
		default:
			if nested := w.typeDecl(child, depth+1); nested != nil {
				decl.Nested = append(decl.Nested, nested)
			}
		}
	}
}

// modifiers splits a modifiers node into keywords and annotation names.
func (w *javaWalker) modifiers(node *sitter.Node) (keywords, annotations []string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "marker_annotation", "annotation":
			if name := compactName(w.text(child.ChildByFieldName("name"))); name != "" {
				annotations = append(annotations, name)
			}
		default:
			if !child.IsNamed() {
				keywords = append(keywords, child.Type())
			}
		}
	}
	return keywords, annotations
}

func (w *javaWalker) fieldDecls(node *sitter.Node) []*FieldDecl {
	var mods, annotations []string
	var fields []*FieldDecl
	base := w.typeRef(node.ChildByFieldName("type"))
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			mods, annotations = w.modifiers(child)
		case "variable_declarator":
			name := w.text(child.ChildByFieldName("name"))
			if name == "" {
				continue
			}
			fields = append(fields, &FieldDecl{
				Name:        name,
				Type:        addDims(base, countDims(w.text(child.ChildByFieldName("dimensions")))),
				Modifiers:   mods,
				Annotations: annotations,
				Line:        int(child.StartPoint().Row + 1),
			})
		}
	}
	return fields
}

func (w *javaWalker) methodDecl(node *sitter.Node, constructor bool) *MethodDecl {
	m := &MethodDecl{
		Name:        w.text(node.ChildByFieldName("name")),
		Constructor: constructor,
		Location:    w.location(node),
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			m.Modifiers, m.Annotations = w.modifiers(child)
		case "type_parameters":
			m.TypeParams = w.typeParameters(child)
		case "formal_parameters":
			m.Params = w.formalParameters(child)
		case "throws":
			m.Throws = w.typeList(child)
		case "block", "constructor_body":
			m.HasBody = true
		}
	}
	if !constructor {
		dims := countDims(w.text(node.ChildByFieldName("dimensions")))
		m.Result = addDims(w.typeRef(node.ChildByFieldName("type")), dims)
	}
	return m
}

func (w *javaWalker) annotationElement(node *sitter.Node) *MethodDecl {
	m := &MethodDecl{
		Name:     w.text(node.ChildByFieldName("name")),
		Location: w.location(node),
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == "modifiers" {
			m.Modifiers, m.Annotations = w.modifiers(child)
		}
	}
	dims := countDims(w.text(node.ChildByFieldName("dimensions")))
	m.Result = addDims(w.typeRef(node.ChildByFieldName("type")), dims)
	return m
}

func (w *javaWalker) formalParameters(node *sitter.Node) []*ParamDecl {
	var params []*ParamDecl
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "formal_parameter":
			p := &ParamDecl{Name: w.text(child.ChildByFieldName("name"))}
			for j := 0; j < int(child.ChildCount()); j++ {
				if c := child.Child(j); c.Type() == "modifiers" {
					p.Modifiers, p.Annotations = w.modifiers(c)
				}
			}
			dims := countDims(w.text(child.ChildByFieldName("dimensions")))
			p.Type = addDims(w.typeRef(child.ChildByFieldName("type")), dims)
			params = append(params, p)
		case "spread_parameter":
			params = append(params, w.spreadParameter(child))
		}
	}
	return params
}

// spreadParameter handles "T... name". Its type child carries no field
// name, so the first type-shaped child is taken.
func (w *javaWalker) spreadParameter(node *sitter.Node) *ParamDecl {
	p := &ParamDecl{VarArgs: true}
	var elem *TypeRef
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "modifiers":
			p.Modifiers, p.Annotations = w.modifiers(child)
		case "variable_declarator":
			p.Name = w.text(child.ChildByFieldName("name"))
		case "identifier":
			p.Name = w.text(child)
		default:
			if elem == nil {
				elem = w.typeRef(child)
			}
		}
	}
	if elem == nil {
		elem = &TypeRef{Name: "Object"}
	}
	p.Type = addDims(elem, 1)
	return p
}

func (w *javaWalker) typeParameters(node *sitter.Node) []TypeParam {
	var params []TypeParam
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "type_parameter" {
			continue
		}
		var tp TypeParam
		for j := 0; j < int(child.NamedChildCount()); j++ {
			c := child.NamedChild(j)
			switch c.Type() {
			case "identifier", "type_identifier":
				tp.Name = w.text(c)
			case "type_bound":
				tp.Bounds = w.typeList(c)
			}
		}
		if tp.Name != "" {
			params = append(params, tp)
		}
	}
	return params
}

// typeList returns every type child of node, descending into a type_list.
func (w *javaWalker) typeList(node *sitter.Node) []*TypeRef {
	var refs []*TypeRef
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "type_list" {
			refs = append(refs, w.typeList(child)...)
			continue
		}
		if ref := w.typeRef(child); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (w *javaWalker) firstType(node *sitter.Node) *TypeRef {
	refs := w.typeList(node)
	if len(refs) == 0 {
		return nil
	}
	return refs[0]
}

// typeRef converts a type node. It returns nil for nodes that are not types.
func (w *javaWalker) typeRef(node *sitter.Node) *TypeRef {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "type_identifier", "identifier":
		return &TypeRef{Name: w.text(node)}
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return &TypeRef{Name: strings.TrimSpace(w.text(node))}
	case "scoped_type_identifier":
		name, args := w.scopedName(node)
		return &TypeRef{Name: name, Args: args}
	case "generic_type":
		ref := &TypeRef{}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "type_identifier":
				ref.Name = w.text(child)
			case "scoped_type_identifier":
				ref.Name, _ = w.scopedName(child)
			case "type_arguments":
				ref.Args = w.typeArguments(child)
			}
		}
		return ref
	case "array_type":
		elem := w.typeRef(node.ChildByFieldName("element"))
		if elem == nil {
			return nil
		}
		return addDims(elem, countDims(w.text(node.ChildByFieldName("dimensions"))))
	case "wildcard":
		return w.wildcard(node)
	case "annotated_type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if ref := w.typeRef(node.NamedChild(i)); ref != nil {
				return ref
			}
		}
	}
	return nil
}

// scopedName flattens Outer.Inner and Outer<A>.Inner to a dotted name. The
// arguments of the last generic segment are returned.
func (w *javaWalker) scopedName(node *sitter.Node) (string, []*TypeRef) {
	var parts []string
	var args []*TypeRef
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "type_identifier":
			parts = append(parts, w.text(child))
		case "scoped_type_identifier":
			name, _ := w.scopedName(child)
			parts = append(parts, name)
		case "generic_type":
			ref := w.typeRef(child)
			parts = append(parts, ref.Name)
			args = ref.Args
		}
	}
	return strings.Join(parts, "."), args
}

func (w *javaWalker) typeArguments(node *sitter.Node) []*TypeRef {
	var args []*TypeRef
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if ref := w.typeRef(node.NamedChild(i)); ref != nil {
			args = append(args, ref)
		}
	}
	return args
}

func (w *javaWalker) wildcard(node *sitter.Node) *TypeRef {
	ref := &TypeRef{Name: "?"}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "extends":
			ref.Wildcard = WildcardExtends
		case "super":
			ref.Wildcard = WildcardSuper
		default:
			if child.IsNamed() && ref.Bound == nil {
				ref.Bound = w.typeRef(child)
			}
		}
	}
	if ref.Bound == nil {
		ref.Wildcard = WildcardNone
	}
	return ref
}

// addDims returns a copy of ref with extra array dimensions.
func addDims(ref *TypeRef, extra int) *TypeRef {
	if ref == nil || extra == 0 {
		return ref
	}
	cp := *ref
	cp.Dims += extra
	return &cp
}

func countDims(s string) int {
	return strings.Count(s, "[")
}

// compactName removes whitespace from a dotted name.
func compactName(s string) string {
	return strings.Join(strings.Fields(s), "")
}
