package vm

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"unicode/utf8"
)

func registerWrappedMethods(b *Builtins) {
	registerBinaryMethods(b.Binaries)
	registerRegexMethods(b.Regexes)
}

func registerBinaryMethods(t *TypedTable[*Wrapper[[]byte]]) {
	Help.SetOnTable(t.DispatchTable, "Raw bytes, shared with the host without copying.")

	t.Property("length", func(p *Process, w *Wrapper[[]byte]) (Value, error) {
		return Int(len(w.host)), nil
	}, nil)
	t.Method("size", func(p *Process, w *Wrapper[[]byte], args *CallArgs) (Value, error) {
		return Int(len(w.host)), nil
	})
	Help.Set(t.Method("toString", binaryToString), "binary.toString(): Decodes the bytes as UTF-8.")
	t.Method("decode", binaryToString)
	t.Method("encodeBase64", func(p *Process, w *Wrapper[[]byte], args *CallArgs) (Value, error) {
		return String(base64.StdEncoding.EncodeToString(w.host)), nil
	})
	t.Method("toHex", func(p *Process, w *Wrapper[[]byte], args *CallArgs) (Value, error) {
		return String(hex.EncodeToString(w.host)), nil
	})
	t.Method("sha256", func(p *Process, w *Wrapper[[]byte], args *CallArgs) (Value, error) {
		sum := sha256.Sum256(w.host)
		return String(hex.EncodeToString(sum[:])), nil
	})
	t.Method(IndexGet, func(p *Process, w *Wrapper[[]byte], args *CallArgs) (Value, error) {
		i, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += int64(len(w.host))
		}
		if i < 0 || i >= int64(len(w.host)) {
			return nil, NewError(p, ArgumentError, "binary index %d out of range", i)
		}
		return Int(w.host[i]), nil
	})
}

func registerRegexMethods(t *TypedTable[*Wrapper[*regexp.Regexp]]) {
	t.Method("matches", func(p *Process, w *Wrapper[*regexp.Regexp], args *CallArgs) (Value, error) {
		s, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return Bool(w.host.MatchString(s)), nil
	})
	Help.Set(t.Method("extract", func(p *Process, w *Wrapper[*regexp.Regexp], args *CallArgs) (Value, error) {
		s, err := oneString(args)
		if err != nil {
			return nil, err
		}
		m := w.host.FindStringSubmatch(s)
		switch {
		case m == nil:
			return Null, nil
		case len(m) > 1:
			return String(m[1]), nil
		}
		return String(m[0]), nil
	}), "regex.extract(s): Returns the first group of the first match, the whole match if there are no groups, or null.")
	t.Method("extractAll", func(p *Process, w *Wrapper[*regexp.Regexp], args *CallArgs) (Value, error) {
		s, err := oneString(args)
		if err != nil {
			return nil, err
		}
		out := NewList()
		for _, m := range w.host.FindAllStringSubmatch(s, -1) {
			if len(m) > 1 {
				out.Append(String(m[1]))
			} else {
				out.Append(String(m[0]))
			}
		}
		return out, nil
	})
	t.Method("replaceAll", func(p *Process, w *Wrapper[*regexp.Regexp], args *CallArgs) (Value, error) {
		s, repl, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return String(w.host.ReplaceAllString(s, repl)), nil
	})
	t.Method("replaceFirst", func(p *Process, w *Wrapper[*regexp.Regexp], args *CallArgs) (Value, error) {
		s, repl, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return String(replaceFirst(w.host, s, repl)), nil
	})
	t.Method("split", func(p *Process, w *Wrapper[*regexp.Regexp], args *CallArgs) (Value, error) {
		s, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return StringList(w.host.Split(s, -1)), nil
	})
	t.Property("pattern", func(p *Process, w *Wrapper[*regexp.Regexp]) (Value, error) {
		return String(w.host.String()), nil
	}, nil)
}

func binaryToString(p *Process, w *Wrapper[[]byte], args *CallArgs) (Value, error) {
	if !utf8.Valid(w.host) {
		return nil, NewError(p, ArgumentError, "binary data is not valid UTF-8")
	}
	return String(w.host), nil
}
