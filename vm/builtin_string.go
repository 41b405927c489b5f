package vm

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// expandPattern matches ${name} placeholders.
var expandPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

func registerStringMethods(b *Builtins) {
	t := b.Strings
	Help.SetOnTable(t.DispatchTable, "Immutable text. Indexing and slicing count characters, not bytes.")

	Help.Set(t.Method("length", func(p *Process, s String, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(0); err != nil {
			return nil, err
		}
		return Int(utf8.RuneCountInString(string(s))), nil
	}), "String.length(): Returns the number of characters in the string.")

	Help.Set(t.Method("trim", func(p *Process, s String, args *CallArgs) (Value, error) {
		return String(strings.TrimSpace(string(s))), args.RequireExactly(0)
	}), "String.trim(): Removes leading and trailing whitespace.")

	t.Method("toUpperCase", stringMapper(strings.ToUpper))
	t.Method("toLowerCase", stringMapper(strings.ToLower))
	t.Method("upper", stringMapper(strings.ToUpper))
	t.Method("lower", stringMapper(strings.ToLower))
	t.Method("empty", func(p *Process, s String, args *CallArgs) (Value, error) {
		return Bool(s == ""), args.RequireExactly(0)
	})
	t.Method("isNumeric", func(p *Process, s String, args *CallArgs) (Value, error) {
		return Bool(s != "" && strings.IndexFunc(string(s), func(r rune) bool { return !unicode.IsDigit(r) }) < 0), nil
	})
	t.Method("startsWithNumbers", func(p *Process, s String, args *CallArgs) (Value, error) {
		r, _ := utf8.DecodeRuneInString(string(s))
		return Bool(s != "" && unicode.IsDigit(r)), nil
	})
	t.Method("removeLeadingZeros", func(p *Process, s String, args *CallArgs) (Value, error) {
		out := strings.TrimLeft(string(s), "0")
		if out == "" && s != "" {
			out = "0"
		}
		return String(out), nil
	})

	Help.Set(t.Method("contains", stringPredicate(strings.Contains)),
		"String.contains(s): Returns true if s occurs in the string.")
	t.Method("containsIgnoreCase", stringPredicate(func(s, sub string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}))
	t.Method("startsWith", stringPredicate(strings.HasPrefix))
	t.Method("endsWith", stringPredicate(strings.HasSuffix))
	t.Method("count", func(p *Process, s String, args *CallArgs) (Value, error) {
		sub, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return Int(strings.Count(string(s), sub)), nil
	})
	t.Method("indexOf", func(p *Process, s String, args *CallArgs) (Value, error) {
		sub, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return runeIndex(string(s), strings.Index(string(s), sub)), nil
	})
	t.Method("lastIndexOf", func(p *Process, s String, args *CallArgs) (Value, error) {
		sub, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return runeIndex(string(s), strings.LastIndex(string(s), sub)), nil
	})

	Help.Set(t.Method("substring", func(p *Process, s String, args *CallArgs) (Value, error) {
		if err := args.Require(1, 2); err != nil {
			return nil, err
		}
		runes := []rune(string(s))
		from, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		to, err := args.OptionalInt(1, int64(len(runes)))
		if err != nil {
			return nil, err
		}
		if from < 0 || to > int64(len(runes)) || from > to {
			return nil, NewError(p, ArgumentError, "substring(%d, %d) out of range for length %d", from, to, len(runes))
		}
		return String(runes[from:to]), nil
	}), "String.substring(from[, to]): Returns the characters from..to.")

	Help.Set(t.Method("split", func(p *Process, s String, args *CallArgs) (Value, error) {
		sep, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return StringList(strings.Split(string(s), sep)), nil
	}), "String.split(sep): Splits the string at every occurrence of sep.")
	t.Method("splitLines", func(p *Process, s String, args *CallArgs) (Value, error) {
		text := strings.ReplaceAll(string(s), "\r\n", "\n")
		if text == "" {
			return NewList(), nil
		}
		return StringList(strings.Split(strings.TrimSuffix(text, "\n"), "\n")), nil
	})

	Help.Set(t.Method("replace", func(p *Process, s String, args *CallArgs) (Value, error) {
		old, repl, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return String(strings.Replace(string(s), old, repl, 1)), nil
	}), "String.replace(old, new): Replaces the first occurrence of old.")
	Help.Set(t.Method("replaceAll", func(p *Process, s String, args *CallArgs) (Value, error) {
		pattern, repl, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, NewError(p, ArgumentError, "invalid regex %q: %v", pattern, err)
		}
		return String(re.ReplaceAllString(string(s), repl)), nil
	}), "String.replaceAll(regex, new): Replaces every match of regex.")
	t.Method("replaceFirst", func(p *Process, s String, args *CallArgs) (Value, error) {
		pattern, repl, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, NewError(p, ArgumentError, "invalid regex %q: %v", pattern, err)
		}
		return String(replaceFirst(re, string(s), repl)), nil
	})

	Help.Set(t.Method("format", func(p *Process, s String, args *CallArgs) (Value, error) {
		fa := make([]any, args.Len())
		for i, v := range args.Values() {
			fa[i] = formatArg{OrNull(v)}
		}
		return String(fmt.Sprintf(string(s), fa...)), nil
	}), "String.format(args...): Formats the arguments with the string as a %s/%d pattern.")
	Help.Set(t.Method("expand", func(p *Process, s String, args *CallArgs) (Value, error) {
		if err := args.Require(0, 1); err != nil {
			return nil, err
		}
		var lookup func(name string) (Value, error)
		if args.Len() == 1 {
			m, err := args.Map(0)
			if err != nil {
				return nil, err
			}
			lookup = func(name string) (Value, error) {
				v, _ := m.GetString(name)
				return OrNull(v), nil
			}
		} else {
			scope := p.CurrentScope()
			if scope == nil {
				return nil, NewError(p, NameError, "expand() called outside of a running script")
			}
			lookup = func(name string) (Value, error) { return scope.Lookup(p, name) }
		}
		var failed error
		out := expandPattern.ReplaceAllStringFunc(string(s), func(m string) string {
			name := expandPattern.FindStringSubmatch(m)[1]
			v, err := lookupPath(p, lookup, name)
			if err != nil && failed == nil {
				failed = err
			}
			return Display(v)
		})
		if failed != nil {
			return nil, failed
		}
		return String(out), nil
	}), "String.expand([map]): Replaces ${name} with values from the map or the current scope.")

	t.Method("toInt", stringToInt)
	t.Method("int", stringToInt)
	t.Method("toFloat", func(p *Process, s String, args *CallArgs) (Value, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
		if err != nil {
			return nil, NewError(p, ArgumentError, "not a number: %q", string(s))
		}
		return Float(f), nil
	})
	t.Method("toBinary", stringToBinary)
	t.Method("toBinaryUtf8", stringToBinary)
	t.Method("urlEncode", stringMapper(url.QueryEscape))
	t.Method("urlDecode", func(p *Process, s String, args *CallArgs) (Value, error) {
		out, err := url.QueryUnescape(string(s))
		if err != nil {
			return nil, Native(p, err)
		}
		return String(out), nil
	})
	t.Method("toRegex", func(p *Process, s String, args *CallArgs) (Value, error) {
		return p.Builtins().CompileRegex(p, string(s))
	})

	Help.Set(t.Method("parseJson", func(p *Process, s String, args *CallArgs) (Value, error) {
		v, err := FromJSON([]byte(s))
		if err != nil {
			return nil, NewError(p, ArgumentError, "invalid JSON: %v", err)
		}
		return v, nil
	}), "String.parseJson(): Parses the string as JSON into maps, lists and scalars.")
	t.Method("parseYaml", func(p *Process, s String, args *CallArgs) (Value, error) {
		v, err := FromYAML([]byte(s))
		if err != nil {
			return nil, NewError(p, ArgumentError, "invalid YAML: %v", err)
		}
		return v, nil
	})
	t.Method("parseDate", func(p *Process, s String, args *CallArgs) (Value, error) {
		tm, err := parseWithPattern(p, s, args, "yyyy-MM-dd")
		if err != nil {
			return nil, err
		}
		return DateOf(tm), nil
	})
	t.Method("parseDateTime", func(p *Process, s String, args *CallArgs) (Value, error) {
		tm, err := parseWithPattern(p, s, args, "yyyy-MM-dd HH:mm:ss")
		if err != nil {
			return nil, err
		}
		return NewDateTime(tm), nil
	})

	t.Method(IndexGet, func(p *Process, s String, args *CallArgs) (Value, error) {
		i, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		runes := []rune(string(s))
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return nil, NewError(p, ArgumentError, "string index %d out of range", i)
		}
		return String(runes[i]), nil
	})
	t.Method(SliceGet, func(p *Process, s String, args *CallArgs) (Value, error) {
		runes := []rune(string(s))
		from, to, err := sliceArgs(args, len(runes))
		if err != nil {
			return nil, err
		}
		from, to = sliceBounds(len(runes), from, to)
		if from <= to {
			return String(runes[from:to]), nil
		}
		out := make([]rune, 0, from-to)
		for i := from - 1; i >= to; i-- {
			out = append(out, runes[i])
		}
		return String(out), nil
	})
}

func stringMapper(fn func(string) string) func(*Process, String, *CallArgs) (Value, error) {
	return func(p *Process, s String, args *CallArgs) (Value, error) {
		if err := args.RequireExactly(0); err != nil {
			return nil, err
		}
		return String(fn(string(s))), nil
	}
}

func stringPredicate(fn func(s, arg string) bool) func(*Process, String, *CallArgs) (Value, error) {
	return func(p *Process, s String, args *CallArgs) (Value, error) {
		arg, err := oneString(args)
		if err != nil {
			return nil, err
		}
		return Bool(fn(string(s), arg)), nil
	}
}

func oneString(args *CallArgs) (string, error) {
	if err := args.RequireExactly(1); err != nil {
		return "", err
	}
	return args.String(0)
}

func twoStrings(args *CallArgs) (string, string, error) {
	if err := args.RequireExactly(2); err != nil {
		return "", "", err
	}
	a, err := args.String(0)
	if err != nil {
		return "", "", err
	}
	b, err := args.String(1)
	return a, b, err
}

// StringList converts Go strings to a script list.
func StringList(parts []string) *List {
	items := make([]Value, len(parts))
	for i, s := range parts {
		items[i] = String(s)
	}
	return NewList(items...)
}

// runeIndex converts a byte offset into a character index; -1 stays -1.
func runeIndex(s string, byteIndex int) Value {
	if byteIndex < 0 {
		return Int(-1)
	}
	return Int(utf8.RuneCountInString(s[:byteIndex]))
}

// sliceArgs reads the two bounds of a slice operation. Null bounds mean the
// start and the end.
func sliceArgs(args *CallArgs, n int) (int, int, error) {
	from, err := args.OptionalInt(0, 0)
	if err != nil {
		return 0, 0, err
	}
	to, err := args.OptionalInt(1, int64(n))
	if err != nil {
		return 0, 0, err
	}
	return int(from), int(to), nil
}

func stringToInt(p *Process, s String, args *CallArgs) (Value, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64)
	if err != nil {
		return nil, NewError(p, ArgumentError, "not an integer: %q", string(s))
	}
	return Int(n), nil
}

func stringToBinary(p *Process, s String, args *CallArgs) (Value, error) {
	return p.Builtins().NewBinary([]byte(s)), nil
}

func parseWithPattern(p *Process, s String, args *CallArgs, def string) (time.Time, error) {
	pattern, err := args.OptionalString(0, def)
	if err != nil {
		return time.Time{}, err
	}
	tm, err := time.ParseInLocation(GoLayout(pattern), string(s), time.Local)
	if err != nil {
		return time.Time{}, NewError(p, ArgumentError, "cannot parse %q with pattern %q", string(s), pattern)
	}
	return tm, nil
}

// lookupPath resolves a dotted name: the first segment through lookup, the
// rest as attributes.
func lookupPath(p *Process, lookup func(string) (Value, error), path string) (Value, error) {
	parts := strings.Split(path, ".")
	v, err := lookup(parts[0])
	if err != nil {
		return nil, err
	}
	for _, attr := range parts[1:] {
		v, err = GetAttribute(p, v, attr, true)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// formatArg adapts script values to fmt verbs: %s prints the display
// string, everything else sees the host value.
type formatArg struct {
	v Value
}

func (a formatArg) Format(f fmt.State, verb rune) {
	if verb == 's' || verb == 'v' {
		fmt.Fprintf(f, fmt.FormatString(f, verb), a.v.String())
		return
	}
	fmt.Fprintf(f, fmt.FormatString(f, verb), a.v.HostValue())
}

// replaceFirst replaces the first match of re in s, expanding $1 style
// references in repl.
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	out := re.ExpandString(nil, repl, s, loc)
	return s[:loc[0]] + string(out) + s[loc[1]:]
}
