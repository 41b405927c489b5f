package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/eischet/janitor-sub000/compiler"
	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

const lspName = "janitor-lsp"

// LSP bridges editor features to a Janitor environment via a Worker.
type LSP struct {
	worker *Worker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server for scripts run in e.
func NewLSP(e *env.Environment) *LSP {
	s := &LSP{
		worker:  NewWorker(e),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run serves LSP on stdio. Blocks until the client disconnects.
func (s *LSP) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LSP) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LSP) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LSP) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LSP) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LSP) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

func (s *LSP) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LSP) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With full sync the last change holds the whole text.
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LSP) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LSP) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix, member := extractPrefix(text, params.Position)
	if prefix == "" && !member {
		return nil, nil
	}
	return s.worker.Do(func(e *env.Environment) (any, error) {
		if member {
			return completeMember(e, prefix), nil
		}
		return completeName(e, text, prefix), nil
	})
}

func (s *LSP) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	result, err := s.worker.Do(func(e *env.Environment) (any, error) {
		return hover(e, text, word), nil
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LSP) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	prog, _ := compiler.Parse(text)
	span, ok := prog.Definition(word)
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{URI: uri, Range: spanRange(span)}}, nil
}

func (s *LSP) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	prog, _ := compiler.Parse(text)
	var locations []protocol.Location
	for _, span := range prog.References(word) {
		locations = append(locations, protocol.Location{URI: uri, Range: spanRange(span)})
	}
	return locations, nil
}

// --- Environment-backed logic (called on the worker goroutine) ---

const maxCompletionItems = 100

func matches(name, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix))
}

func allTables(e *env.Environment) []*vm.DispatchTable {
	return append(e.Builtins().Tables(), e.RegisteredTypes()...)
}

// completeMember offers attributes of every known table; the receiver type
// is not known before run time.
func completeMember(e *env.Environment, prefix string) []protocol.CompletionItem {
	byName := make(map[string]*protocol.CompletionItem)
	var order []string
	for _, t := range allTables(e) {
		for _, entry := range t.Entries() {
			name := entry.Name()
			if entry.Table() != t || !matches(name, prefix) || strings.HasPrefix(name, "[") {
				continue
			}
			if item, ok := byName[name]; ok {
				detail := *item.Detail + ", " + t.Name()
				item.Detail = &detail
				continue
			}
			kind := protocol.CompletionItemKindMethod
			if entry.Kind() == vm.EntryProperty {
				kind = protocol.CompletionItemKindProperty
			}
			detail := t.Name()
			nameCopy := name
			item := &protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &nameCopy,
			}
			if doc, ok := vm.Help.Get(t, name); ok {
				item.Documentation = doc
			}
			byName[name] = item
			order = append(order, name)
		}
	}
	sort.Strings(order)
	items := make([]protocol.CompletionItem, 0, len(order))
	for _, name := range order {
		items = append(items, *byName[name])
	}
	return limit(items)
}

func completeName(e *env.Environment, text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(name string, kind protocol.CompletionItemKind, detail string) {
		if seen[name] || !matches(name, prefix) {
			return
		}
		seen[name] = true
		nameCopy, detailCopy := name, detail
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &nameCopy,
		})
	}

	prog, _ := compiler.Parse(text)
	for _, name := range prog.Declarations() {
		add(name, protocol.CompletionItemKindVariable, "global")
	}
	for _, t := range e.RegisteredTypes() {
		add(t.Name(), protocol.CompletionItemKindClass, "type")
	}
	for _, name := range e.BuiltinScope().Names() {
		add(name, protocol.CompletionItemKindFunction, "builtin")
	}
	for _, word := range compiler.Keywords() {
		add(word, protocol.CompletionItemKindKeyword, "keyword")
	}
	return limit(items)
}

func limit(items []protocol.CompletionItem) []protocol.CompletionItem {
	if len(items) > maxCompletionItems {
		return items[:maxCompletionItems]
	}
	return items
}

func markdown(text string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}
}

func hover(e *env.Environment, text, word string) *protocol.Hover {
	// Registered type → its help and attributes
	if t := e.RegisteredType(word); t != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**", t.Name())
		if parent := t.Parent(); parent != nil {
			fmt.Fprintf(&b, " < %s", parent.Name())
		}
		b.WriteString("\n\n")
		if doc, ok := vm.Help.GetFromTable(t); ok {
			b.WriteString("---\n\n")
			b.WriteString(doc)
			b.WriteString("\n\n")
		}
		if names := t.Names(); len(names) > 0 {
			fmt.Fprintf(&b, "Attributes: `%s`", strings.Join(names, " "))
		}
		return markdown(b.String())
	}

	if v, ok := e.BuiltinScope().RetrieveLocal(word); ok {
		detail := "builtin " + v.TypeName()
		if c, ok := v.(vm.Callable); ok {
			detail = "builtin function " + c.Name()
		}
		return markdown(fmt.Sprintf("**%s**\n\n%s", word, detail))
	}

	// Attribute name → the tables that implement it
	var implementors []string
	doc := ""
	for _, t := range allTables(e) {
		entry, ok := t.Lookup(word)
		if !ok || entry.Table() != t {
			continue
		}
		implementors = append(implementors, t.Name())
		if doc == "" {
			doc, _ = vm.Help.Get(t, word)
		}
	}
	if len(implementors) > 0 {
		sort.Strings(implementors)
		var b strings.Builder
		fmt.Fprintf(&b, "**.%s**\n\n", word)
		fmt.Fprintf(&b, "Defined on %d types:\n", len(implementors))
		for _, name := range implementors {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		if doc != "" {
			fmt.Fprintf(&b, "\n---\n\n%s\n", doc)
		}
		return markdown(b.String())
	}

	prog, _ := compiler.Parse(text)
	if span, ok := prog.Definition(word); ok {
		return markdown(fmt.Sprintf("**%s**\n\ndefined on line %d", word, span.Start.Line))
	}
	return nil
}

// --- Diagnostics ---

// diagnose compiles and lints text on the worker and converts the results.
func (s *LSP) diagnose(name, text string) []protocol.Diagnostic {
	result, err := s.worker.Do(func(e *env.Environment) (any, error) {
		var diagnostics []protocol.Diagnostic
		warnings, compileErr := e.Check(name, text)
		for _, d := range env.Diagnostics(compileErr) {
			diagnostics = append(diagnostics, diagnostic(d, protocol.DiagnosticSeverityError))
		}
		for _, d := range warnings {
			diagnostics = append(diagnostics, diagnostic(d, protocol.DiagnosticSeverityWarning))
		}
		return diagnostics, nil
	})
	if err != nil {
		return nil
	}
	diagnostics, _ := result.([]protocol.Diagnostic)
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	return diagnostics
}

func (s *LSP) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnose(string(uri), text),
	})
}

func diagnostic(d vm.Diagnostic, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
	source := lspName
	pos := position(d.Line, d.Column)
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &severity,
		Source:   &source,
		Message:  d.Message,
	}
}

// position converts 1-based line and column to an LSP position.
func position(line, column int) protocol.Position {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	return protocol.Position{Line: protocol.UInteger(line - 1), Character: protocol.UInteger(column - 1)}
}

func spanRange(span compiler.Span) protocol.Range {
	return protocol.Range{
		Start: position(span.Start.Line, span.Start.Column),
		End:   position(span.End.Line, span.End.Column),
	}
}

// --- Text extraction helpers ---

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the identifier fragment before the cursor and
// whether it follows a dot.
func extractPrefix(text string, pos protocol.Position) (string, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	member := start > 0 && line[start-1] == '.'
	return line[start:col], member
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(rune(line[end])) {
		end++
	}
	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
