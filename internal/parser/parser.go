// Package parser turns a token stream into raw concept instances using the
// parsing rules of a grammar registry.
package parser

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/conceptc/internal/grammar"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"github.com/leapstack-labs/conceptc/pkg/token"
)

// DefaultMaxErrors bounds the number of syntax errors collected before
// parsing stops.
const DefaultMaxErrors = 20

// Parser parses concept statements.
type Parser struct {
	reg       *grammar.Registry
	logger    *slog.Logger
	maxErrors int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxErrors sets how many independent syntax errors are collected
// before parsing stops. Values below 1 mean stop at the first error.
func WithMaxErrors(n int) Option {
	return func(p *Parser) {
		if n < 1 {
			n = 1
		}
		p.maxErrors = n
	}
}

// New creates a parser for the concept types of reg.
func New(reg *grammar.Registry, opts ...Option) *Parser {
	p := &Parser{
		reg:       reg,
		logger:    slog.New(slog.DiscardHandler),
		maxErrors: DefaultMaxErrors,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// frame is an open brace block whose concept is the context of nested statements.
type frame struct {
	inst *concept.Instance
	open token.Position
}

// run holds the state of a single Parse call.
type run struct {
	*Parser
	tokens []token.Token
	pos    int
	stack  []frame
	out    []*concept.Instance
	errs   dslerr.List
}

// Parse parses the token stream produced by the lexer. The stream may hold
// several scripts, each terminated by its own EOF token; braces must balance
// within every script.
//
// On failure the returned error is a single dslerr error or a dslerr.List of
// independent errors.
func (p *Parser) Parse(tokens []token.Token) ([]*concept.Instance, error) {
	r := &run{Parser: p, tokens: tokens}
	for r.pos < len(r.tokens) && len(r.errs) < p.maxErrors {
		r.step()
	}
	if err := r.errs.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug("parsed concepts", "tokens", len(tokens), "concepts", len(r.out))
	return r.out, nil
}

func (r *run) peek(i int) token.Token {
	if i < len(r.tokens) {
		return r.tokens[i]
	}
	if len(r.tokens) == 0 {
		return token.Token{Kind: token.EOF}
	}
	last := r.tokens[len(r.tokens)-1]
	return token.Token{Kind: token.EOF, Pos: last.Pos}
}

// step parses one statement or structural token.
func (r *run) step() {
	tok := r.tokens[r.pos]
	switch {
	case tok.Kind == token.EOF:
		if n := len(r.stack); n > 0 {
			open := r.stack[n-1]
			err := dslerr.NewSyntaxError(open.open, "missing '}' for %s", identity.Describe(open.inst))
			err.Keyword = open.inst.Type.Keyword
			r.errs = append(r.errs, err)
			r.stack = nil
		}
		r.pos++
	case tok.Is(token.RBrace):
		if len(r.stack) == 0 {
			r.errs = append(r.errs, dslerr.NewSyntaxError(tok.Pos, "unexpected '}' without a matching '{'"))
		} else {
			r.stack = r.stack[:len(r.stack)-1]
		}
		r.pos++
	case tok.Kind == token.Ident:
		if err := r.statement(); err != nil {
			r.errs = append(r.errs, err)
			r.recover()
		}
	default:
		r.errs = append(r.errs, dslerr.NewSyntaxError(tok.Pos, "expected a concept keyword, found %s", tok))
		r.pos++
		switch {
		case tok.Is(token.LBrace):
			r.skipBlock()
		case !tok.Is(token.Semicolon):
			r.recover()
		}
	}
}

// attempt is the outcome of applying one rule at the current position.
type attempt struct {
	rule grammar.Rule
	inst *concept.Instance
	end  int
	err  error
}

// statement parses "Keyword members... ;" or "Keyword members... {".
func (r *run) statement() error {
	kwTok := r.tokens[r.pos]
	rules := r.reg.Rules(kwTok.Text)
	if len(rules) == 0 {
		err := dslerr.NewSyntaxError(kwTok.Pos, "unrecognized concept keyword %q", kwTok.Text)
		err.Keyword = kwTok.Text
		return err
	}

	var ok []attempt
	var reasons []string
	for _, rule := range rules {
		a := r.apply(rule, r.pos+1)
		if a.err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", rule.Type.Name, a.err))
			continue
		}
		ok = append(ok, a)
	}

	if len(ok) == 0 {
		err := dslerr.NewSyntaxError(kwTok.Pos, "invalid arguments for keyword %q", kwTok.Text)
		err.Keyword = kwTok.Text
		err.Reasons = reasons
		return err
	}

	// Maximal munch: keep the interpretations that consumed the most tokens.
	longest := ok[0].end
	for _, a := range ok[1:] {
		longest = max(longest, a.end)
	}
	var tied []attempt
	for _, a := range ok {
		if a.end == longest {
			tied = append(tied, a)
		}
	}
	if len(tied) > 1 {
		err := dslerr.NewSyntaxError(kwTok.Pos, "ambiguous statement %q", kwTok.Text)
		err.Keyword = kwTok.Text
		for _, a := range tied {
			err.Candidates = append(err.Candidates, a.rule.Type.Name)
		}
		return err
	}

	chosen := tied[0]
	inst := chosen.inst
	inst.Pos = kwTok.Pos
	r.pos = chosen.end

	next := r.peek(r.pos)
	opens := next.Is(token.LBrace)
	if !opens && !next.Is(token.Semicolon) {
		err := dslerr.NewSyntaxError(next.Pos, "expected ';' or '{' after %s, found %s", identity.Describe(inst), next)
		err.Keyword = kwTok.Text
		return err
	}
	r.pos++

	if err := r.emit(inst); err != nil {
		if opens {
			r.skipBlock()
		}
		return err
	}
	if opens {
		r.stack = append(r.stack, frame{inst: inst, open: next.Pos})
	}
	return nil
}

// emit appends a parsed concept and runs its alternative initializers right
// away, so that later statements can reference the companions they create.
func (r *run) emit(inst *concept.Instance) error {
	r.out = append(r.out, inst)
	for _, init := range r.reg.Initializers(inst.Type) {
		companions, err := init.Initialize(inst)
		if err != nil {
			return dslerr.NewSemanticError(inst.Pos, identity.Describe(inst), err)
		}
		for _, c := range companions {
			if !c.Pos.IsValid() {
				c.Pos = inst.Pos
			}
		}
		r.out = append(r.out, companions...)
	}
	return nil
}

// recover skips the rest of a failed statement: up to and including the
// next ';', or past the block it opens. A '}' closing an outer block is left
// for the main loop.
func (r *run) recover() {
	for r.pos < len(r.tokens) {
		tok := r.tokens[r.pos]
		switch {
		case tok.Kind == token.EOF, tok.Is(token.RBrace):
			return
		case tok.Is(token.Semicolon):
			r.pos++
			return
		case tok.Is(token.LBrace):
			r.pos++
			r.skipBlock()
			return
		}
		r.pos++
	}
}

// skipBlock skips to the '}' matching an already consumed '{'.
func (r *run) skipBlock() {
	depth := 1
	for r.pos < len(r.tokens) {
		tok := r.tokens[r.pos]
		switch {
		case tok.Kind == token.EOF:
			return
		case tok.Is(token.LBrace):
			depth++
		case tok.Is(token.RBrace):
			depth--
			if depth == 0 {
				r.pos++
				return
			}
		}
		r.pos++
	}
}
