// Package netfile reads networks and queries from the text input format
// and writes answers in the flat output format.
//
// Input:
//
//	Network
//	Variables: A,B
//	Var A
//	Values: true,false
//	Parents: none
//	CPT:
//	=true,0.3
//
//	Var B
//	Values: true,false
//	Parents: A
//	CPT:
//	true,=true,0.8
//	false,P(true)=0.1
//
//	Queries
//	P(A=true|B=true),2
//
// Output: one "probability,sums,multiplies" line per query.
package netfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/query"
)

// File is a parsed input file
type File struct {
	Network *network.Network
	Queries []query.Query
}

type line struct {
	num  int
	text string
}

type varBlock struct {
	line    int
	name    string
	values  []string
	parents []string
	rows    []cptRow
}

type cptRow struct {
	line         int
	parentValues []string
	probs        map[string]float64
}

// ParseFile parses the input file at path
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a network description followed by its queries
func Parse(r io.Reader) (*File, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		lines = append(lines, line{num: num, text: strings.TrimRight(scanner.Text(), " \t\r")})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	p := &parser{lines: lines}
	return p.parse()
}

type parser struct {
	lines []line
	pos   int
}

func (p *parser) parse() (*File, error) {
	first, ok := p.nextNonBlank()
	if !ok || first.text != "Network" {
		return nil, p.errorf(first, "expected %q header", "Network")
	}

	decl, ok := p.nextNonBlank()
	if !ok || !strings.HasPrefix(decl.text, "Variables:") {
		return nil, p.errorf(decl, "expected %q line", "Variables:")
	}
	names := splitList(strings.TrimPrefix(decl.text, "Variables:"))

	b := network.NewBuilder()
	if err := b.Declare(names...); err != nil {
		return nil, fmt.Errorf("line %d: %w", decl.num, err)
	}

	declared := make(map[string]bool, len(names))
	for _, name := range names {
		declared[name] = true
	}
	blocks := make(map[string]*varBlock, len(names))
	for {
		ln, ok := p.nextNonBlank()
		if !ok || ln.text == "Queries" {
			break
		}
		block, err := p.parseVar(ln)
		if err != nil {
			return nil, err
		}
		if !declared[block.name] {
			return nil, fmt.Errorf("line %d: variable %q is not declared: %w", ln.num, block.name, internalerr.ErrLookup)
		}
		if _, dup := blocks[block.name]; dup {
			return nil, p.errorf(ln, "variable %q described twice", block.name)
		}
		blocks[block.name] = block
	}

	// Blocks may appear in any order; define them in declaration order so
	// parents are always defined first.
	for _, name := range names {
		block, ok := blocks[name]
		if !ok {
			return nil, fmt.Errorf("variable %q has no description: %w", name, internalerr.ErrFormat)
		}
		if err := b.Define(block.name, block.values, block.parents); err != nil {
			return nil, fmt.Errorf("line %d: %w", block.line, err)
		}
		for _, row := range block.rows {
			if err := b.AddRow(block.name, row.parentValues, row.probs); err != nil {
				return nil, fmt.Errorf("line %d: %w", row.line, err)
			}
		}
	}

	net, err := b.Build()
	if err != nil {
		return nil, err
	}

	out := &File{Network: net}
	for {
		ln, ok := p.nextNonBlank()
		if !ok {
			break
		}
		q, err := ParseQuery(ln.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln.num, err)
		}
		if _, err := q.Resolve(net); err != nil {
			return nil, fmt.Errorf("line %d: %w", ln.num, err)
		}
		out.Queries = append(out.Queries, q)
	}
	return out, nil
}

func (p *parser) parseVar(head line) (*varBlock, error) {
	if !strings.HasPrefix(head.text, "Var ") {
		return nil, p.errorf(head, "expected %q, got %q", "Var <name>", head.text)
	}
	block := &varBlock{line: head.num, name: strings.TrimSpace(strings.TrimPrefix(head.text, "Var "))}

	ln, ok := p.nextNonBlank()
	if !ok || !strings.HasPrefix(ln.text, "Values:") {
		return nil, p.errorf(ln, "expected %q for %s", "Values:", block.name)
	}
	block.values = splitList(strings.TrimPrefix(ln.text, "Values:"))

	ln, ok = p.nextNonBlank()
	if !ok || !strings.HasPrefix(ln.text, "Parents:") {
		return nil, p.errorf(ln, "expected %q for %s", "Parents:", block.name)
	}
	if parents := strings.TrimSpace(strings.TrimPrefix(ln.text, "Parents:")); parents != "none" {
		block.parents = splitList(parents)
	}

	ln, ok = p.nextNonBlank()
	if !ok || strings.TrimSpace(ln.text) != "CPT:" {
		return nil, p.errorf(ln, "expected %q for %s", "CPT:", block.name)
	}

	// Blank lines inside a table are allowed; the table ends at the next
	// section or variable.
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		text := strings.TrimSpace(ln.text)
		p.pos++
		if text == "" {
			continue
		}
		if text == "Queries" || strings.HasPrefix(text, "Var ") {
			p.pos--
			break
		}
		row, err := parseRow(text, len(block.parents))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln.num, err)
		}
		row.line = ln.num
		block.rows = append(block.rows, row)
	}
	return block, nil
}

// parseRow reads "<parent values...>,<probabilities...>" where each
// probability is either the pair "=value,p" or the token "P(value)=p".
func parseRow(text string, numParents int) (cptRow, error) {
	tokens := splitList(text)
	if len(tokens) <= numParents {
		return cptRow{}, fmt.Errorf("CPT row %q has no probabilities: %w", text, internalerr.ErrFormat)
	}
	row := cptRow{
		parentValues: tokens[:numParents],
		probs:        make(map[string]float64),
	}

	rest := tokens[numParents:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		var value, prob string
		switch {
		case strings.HasPrefix(tok, "="):
			if i+1 >= len(rest) {
				return cptRow{}, fmt.Errorf("CPT row %q: %q has no probability: %w", text, tok, internalerr.ErrFormat)
			}
			value, prob = strings.TrimSpace(tok[1:]), rest[i+1]
			i++
		case strings.HasPrefix(tok, "P(") && strings.Contains(tok, ")="):
			end := strings.Index(tok, ")=")
			value, prob = strings.TrimSpace(tok[2:end]), tok[end+2:]
		default:
			return cptRow{}, fmt.Errorf("CPT row %q: unexpected token %q: %w", text, tok, internalerr.ErrFormat)
		}

		p, err := strconv.ParseFloat(strings.TrimSpace(prob), 64)
		if err != nil {
			return cptRow{}, fmt.Errorf("CPT row %q: bad probability %q: %w", text, prob, internalerr.ErrFormat)
		}
		if _, dup := row.probs[value]; dup {
			return cptRow{}, fmt.Errorf("CPT row %q repeats %q: %w", text, value, internalerr.ErrFormat)
		}
		row.probs[value] = p
	}
	return row, nil
}

// ParseQuery reads one query line. Accepted forms:
//
//	P(X=x|E1=e1,E2=e2),2
//	P(X=x|E1=e1,E2=e2,2)
//	P(X=x|E1=e1,TYPE=2)
//	P(X=x|),1   P(X=x),1
func ParseQuery(text string) (query.Query, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "P(") {
		return query.Query{}, fmt.Errorf("query %q must start with P(: %w", text, internalerr.ErrFormat)
	}
	end := strings.LastIndex(text, ")")
	if end < 0 {
		return query.Query{}, fmt.Errorf("query %q has no closing parenthesis: %w", text, internalerr.ErrFormat)
	}
	inner := text[2:end]
	selector := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[end+1:]), ","))

	head, evidence, _ := strings.Cut(inner, "|")
	tokens := splitList(evidence)
	if selector == "" {
		if len(tokens) == 0 {
			return query.Query{}, fmt.Errorf("query %q has no algorithm selector: %w", text, internalerr.ErrFormat)
		}
		selector = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}
	if name, val, ok := strings.Cut(selector, "="); ok {
		if !strings.EqualFold(strings.TrimSpace(name), "TYPE") {
			return query.Query{}, fmt.Errorf("query %q: bad selector %q: %w", text, selector, internalerr.ErrFormat)
		}
		selector = val
	}
	alg, err := inference.ParseAlgorithm(selector)
	if err != nil {
		return query.Query{}, fmt.Errorf("query %q: %w", text, err)
	}

	target, value, ok := strings.Cut(head, "=")
	if !ok {
		return query.Query{}, fmt.Errorf("query %q: expected X=x: %w", text, internalerr.ErrFormat)
	}
	q := query.Query{
		Target:    strings.TrimSpace(target),
		Value:     strings.TrimSpace(value),
		Algorithm: alg,
	}
	for _, tok := range tokens {
		name, val, ok := strings.Cut(tok, "=")
		if !ok {
			return query.Query{}, fmt.Errorf("query %q: evidence %q is not X=x: %w", text, tok, internalerr.ErrFormat)
		}
		q.Evidence = append(q.Evidence, query.Observation{Var: strings.TrimSpace(name), Value: strings.TrimSpace(val)})
	}
	return q, nil
}

func (p *parser) nextNonBlank() (line, bool) {
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		p.pos++
		if strings.TrimSpace(ln.text) != "" {
			ln.text = strings.TrimSpace(ln.text)
			return ln, true
		}
	}
	return line{num: len(p.lines) + 1}, false
}

func (p *parser) errorf(ln line, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", ln.num, fmt.Sprintf(format, args...), internalerr.ErrFormat)
}

// splitList splits a comma separated list, trimming entries and dropping
// empty ones
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
