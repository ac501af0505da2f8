package lexer

import (
	"context"
	"runtime"

	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/token"
	"golang.org/x/sync/errgroup"
)

// maxErrorsPerScript bounds how many lexical errors are reported for one script.
const maxErrorsPerScript = 10

// Tokenize tokenizes the scripts concurrently and concatenates the results
// in script order. Every script's tokens are followed by that script's EOF
// token, so the parser can check brace balance per script.
//
// Lexical errors do not stop the script at once: the lexer skips the
// offending character and keeps going so that several errors can be
// reported together. All errors are returned as a dslerr.List in script order.
func Tokenize(ctx context.Context, scripts []Script) ([]token.Token, error) {
	results := make([][]token.Token, len(scripts))
	errs := make([]dslerr.List, len(scripts))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range scripts {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = tokenizeScript(s)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all dslerr.List
	total := 0
	for i := range scripts {
		all = append(all, errs[i]...)
		total += len(results[i])
	}
	if err := all.Err(); err != nil {
		return nil, err
	}

	tokens := make([]token.Token, 0, total)
	for _, r := range results {
		tokens = append(tokens, r...)
	}
	return tokens, nil
}

func tokenizeScript(s Script) ([]token.Token, dslerr.List) {
	l := New(s)
	var (
		tokens []token.Token
		errs   dslerr.List
	)
	for {
		tok, err := l.NextToken()
		if err != nil {
			errs = append(errs, err)
			if len(errs) >= maxErrorsPerScript || l.atEOF() {
				return nil, errs
			}
			continue
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			if len(errs) > 0 {
				return nil, errs
			}
			return tokens, nil
		}
	}
}
