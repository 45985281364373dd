package rules

import "fmt"

// rawRecord is one top-level "material <id> { ... }" or "rule { ... }"
// block after parsing but before type-checked decoding into
// MaterialDef/RuleDef (§6.1, §6.2).
type rawRecord struct {
	kind string // "material" or "rule"
	id   uint32 // material id; unused for rule
	line int
	fields map[string]any
}

// parser is a small hand-written recursive-descent parser over the
// declarative keyed-record format (§6.1/§6.2). Trailing commas are
// permitted everywhere a comma separates list/object entries, fixed
// project-wide per §6.1's "pick and enforce at load".
type parser struct {
	sc   *scanner
	tok  token
	file string
}

func parseFile(file, src string) ([]rawRecord, error) {
	p := &parser{sc: newScanner(src), file: file}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var records []rawRecord
	for p.tok.kind != tokEOF {
		rec, err := p.parseRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *parser) advance() error {
	t, err := p.sc.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(k tokKind, what string) error {
	if p.tok.kind != k {
		return fmt.Errorf("%s:%d: expected %s", p.file, p.tok.line, what)
	}
	return p.advance()
}

func (p *parser) parseRecord() (rawRecord, error) {
	if p.tok.kind != tokIdent {
		return rawRecord{}, fmt.Errorf("%s:%d: expected 'material' or 'rule' keyword", p.file, p.tok.line)
	}
	kind := p.tok.text
	if kind != "material" && kind != "rule" {
		return rawRecord{}, fmt.Errorf("%s:%d: unknown record kind %q", p.file, p.tok.line, kind)
	}
	line := p.tok.line
	if err := p.advance(); err != nil {
		return rawRecord{}, err
	}

	var id uint32
	if kind == "material" {
		if p.tok.kind != tokNumber {
			return rawRecord{}, fmt.Errorf("%s:%d: expected material id", p.file, p.tok.line)
		}
		id = uint32(p.tok.num)
		if err := p.advance(); err != nil {
			return rawRecord{}, err
		}
	}

	fields, err := p.parseObjectBody()
	if err != nil {
		return rawRecord{}, err
	}
	return rawRecord{kind: kind, id: id, line: line, fields: fields}, nil
}

// parseObjectBody parses a `{ key: value, ... }` block, the brace
// tokens included, and returns its key/value map.
func (p *parser) parseObjectBody() (map[string]any, error) {
	if err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	for p.tok.kind != tokRBrace {
		if p.tok.kind != tokIdent {
			return nil, fmt.Errorf("%s:%d: expected field name", p.file, p.tok.line)
		}
		key := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		fields[key] = val
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return fields, p.advance() // consume '}'
}

func (p *parser) parseValue() (any, error) {
	switch p.tok.kind {
	case tokNumber:
		v := p.tok.num
		return v, p.advance()
	case tokString:
		v := p.tok.text
		return v, p.advance()
	case tokIdent:
		switch p.tok.text {
		case "true":
			return true, p.advance()
		case "false":
			return false, p.advance()
		default:
			v := p.tok.text // bare identifier, e.g. a phase name
			return v, p.advance()
		}
	case tokLBracket:
		return p.parseArray()
	case tokLBrace:
		return p.parseObjectBody()
	default:
		return nil, fmt.Errorf("%s:%d: unexpected token in value position", p.file, p.tok.line)
	}
}

func (p *parser) parseArray() ([]any, error) {
	if err := p.expect(tokLBracket, "'['"); err != nil {
		return nil, err
	}
	var out []any
	for p.tok.kind != tokRBracket {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return out, p.advance() // consume ']'
}
