package value

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alternate bool
	zero      bool
	width     int
	grouping  bool
	precision int
	verb      byte
}

// specNumber parses a width or precision, bounded like repeated sequences.
func specNumber(digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n > MaxSequenceLen {
		return 0, Errorf(ValueError, "Too many decimal digits in format string")
	}
	return n, nil
}

func parseSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	s := spec
	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }
	if r, size := utf8.DecodeRuneInString(s); size > 0 && len(s) > size && isAlign(s[size]) {
		fs.fill, fs.align = r, s[size]
		s = s[size+1:]
	} else if len(s) > 0 && isAlign(s[0]) {
		fs.align = s[0]
		s = s[1:]
	}
	if len(s) > 0 && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		fs.sign = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '#' {
		fs.alternate = true
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '0' {
		fs.zero = true
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		w, err := specNumber(s[:i])
		if err != nil {
			return fs, err
		}
		fs.width = w
		s = s[i:]
	}
	if len(s) > 0 && s[0] == ',' {
		fs.grouping = true
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '.' {
		j := 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == 1 {
			return fs, Errorf(ValueError, "Format specifier missing precision")
		}
		p, err := specNumber(s[1:j])
		if err != nil {
			return fs, err
		}
		fs.precision = p
		s = s[j:]
	}
	if len(s) > 1 {
		return fs, Errorf(ValueError, "Invalid format specifier '%s'", spec)
	}
	if len(s) == 1 {
		fs.verb = s[0]
	}
	return fs, nil
}

// Format implements format(v, spec) for the host scalar types.
func Format(v Value, spec string) (string, error) {
	if spec == "" {
		return ToStr(v), nil
	}
	fs, err := parseSpec(spec)
	if err != nil {
		return "", err
	}
	var body string
	numeric := false
	switch x := v.(type) {
	case Bool, Int:
		n, _ := asInt(x)
		numeric = true
		if body, err = formatInt(n, fs); err != nil {
			return "", err
		}
	case Float:
		numeric = true
		if body, err = formatFloatSpec(float64(x), fs); err != nil {
			return "", err
		}
	default:
		if fs.verb != 0 && fs.verb != 's' {
			return "", Errorf(ValueError, "Unknown format code '%c' for object of type '%s'", fs.verb, TypeName(v))
		}
		body = ToStr(v)
		if fs.precision >= 0 && utf8.RuneCountInString(body) > fs.precision {
			body = string([]rune(body)[:fs.precision])
		}
	}
	return pad(body, fs, numeric), nil
}

func formatInt(n int64, fs formatSpec) (string, error) {
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	var digits, prefix string
	switch fs.verb {
	case 0, 'd', 'n':
		digits = strconv.FormatUint(u, 10)
	case 'x':
		digits, prefix = strconv.FormatUint(u, 16), "0x"
	case 'X':
		digits, prefix = strings.ToUpper(strconv.FormatUint(u, 16)), "0X"
	case 'o':
		digits, prefix = strconv.FormatUint(u, 8), "0o"
	case 'b':
		digits, prefix = strconv.FormatUint(u, 2), "0b"
	case 'c':
		return string(rune(n)), nil
	case 'f', 'F', 'e', 'E', 'g', 'G', '%':
		return formatFloatSpec(float64(n), fs)
	default:
		return "", Errorf(ValueError, "Unknown format code '%c' for object of type 'int'", fs.verb)
	}
	if fs.grouping {
		digits = group(digits)
	}
	if !fs.alternate {
		prefix = ""
	}
	return signOf(neg, fs) + prefix + digits, nil
}

func formatFloatSpec(f float64, fs formatSpec) (string, error) {
	neg := f < 0
	if neg {
		f = -f
	}
	prec := fs.precision
	var body string
	switch fs.verb {
	case 'f', 'F':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(f, 'f', prec, 64)
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(f, byte(fs.verb), prec, 64)
	case 'g', 'G':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(f, byte(fs.verb), prec, 64)
	case '%':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(f*100, 'f', prec, 64) + "%"
	case 0:
		if prec < 0 {
			body = formatFloat(f)
		} else {
			body = strconv.FormatFloat(f, 'g', prec, 64)
		}
	default:
		return "", Errorf(ValueError, "Unknown format code '%c' for object of type 'float'", fs.verb)
	}
	if fs.grouping {
		intPart, frac, _ := strings.Cut(body, ".")
		body = group(intPart)
		if frac != "" {
			body += "." + frac
		}
	}
	return signOf(neg, fs) + body, nil
}

func signOf(neg bool, fs formatSpec) string {
	switch {
	case neg:
		return "-"
	case fs.sign == '+':
		return "+"
	case fs.sign == ' ':
		return " "
	}
	return ""
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func pad(body string, fs formatSpec, numeric bool) string {
	n := utf8.RuneCountInString(body)
	if n >= fs.width {
		return body
	}
	fill, align := fs.fill, fs.align
	if fs.zero && align == 0 {
		fill, align = '0', '='
	}
	if align == 0 {
		align = '<'
		if numeric {
			align = '>'
		}
	}
	gap := strings.Repeat(string(fill), fs.width-n)
	switch align {
	case '>':
		return gap + body
	case '^':
		half := (fs.width - n) / 2
		return strings.Repeat(string(fill), half) + body + strings.Repeat(string(fill), fs.width-n-half)
	case '=':
		if body != "" && strings.ContainsRune("+- ", rune(body[0])) {
			return body[:1] + gap + body[1:]
		}
		return gap + body
	}
	return body + gap
}

// percentFormat implements the printf-style `str % args` operator.
func percentFormat(format string, args Value) (Value, error) {
	var items []Value
	if t, ok := args.(*Tuple); ok {
		items = t.Items
	} else {
		items = []Value{args}
	}
	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ #0123456789.", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			return nil, Errorf(ValueError, "incomplete format")
		}
		verb := format[j]
		flags := format[i+1 : j]
		i = j
		if verb == '%' {
			b.WriteByte('%')
			continue
		}
		if next >= len(items) {
			return nil, Errorf(TypeError, "not enough arguments for format string")
		}
		arg := items[next]
		next++
		var spec string
		switch {
		case strings.HasPrefix(flags, "-"):
			spec = "<" + flags[1:]
		case flags != "" && flags[0] != '0' && !strings.ContainsAny(flags[:1], "+ #."):
			spec = ">" + flags
		default:
			spec = flags
		}
		var (
			text string
			err  error
		)
		switch verb {
		case 's':
			text, err = Format(Str(ToStr(arg)), spec)
		case 'r', 'a':
			text, err = Format(Str(Repr(arg)), spec)
		case 'd', 'i', 'u':
			if f, ok := arg.(Float); ok {
				arg = Int(int64(f))
			}
			if _, ok := asInt(arg); !ok {
				return nil, Errorf(TypeError, "%%%c format: a real number is required, not %s", verb, TypeName(arg))
			}
			text, err = Format(arg, spec+"d")
		case 'f', 'F', 'e', 'E', 'g', 'G', 'x', 'X', 'o', 'c':
			text, err = Format(arg, spec+string(verb))
		default:
			return nil, Errorf(ValueError, "unsupported format character '%c'", verb)
		}
		if err != nil {
			return nil, err
		}
		b.WriteString(text)
	}
	if next < len(items) {
		return nil, Errorf(TypeError, "not all arguments converted during string formatting")
	}
	return Str(b.String()), nil
}

// formatMethod implements str.format with automatic, positional and named
// fields plus !r/!s conversions and format specs.
func formatMethod(format string, args []Value, kwargs *Dict) (Value, error) {
	var b strings.Builder
	auto := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '}' {
			if i+1 < len(format) && format[i+1] == '}' {
				i++
			}
			b.WriteByte('}')
			continue
		}
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '{' {
			b.WriteByte('{')
			i++
			continue
		}
		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			return nil, Errorf(ValueError, "Single '{' encountered in format string")
		}
		field := format[i+1 : i+end]
		i += end
		name, spec, _ := strings.Cut(field, ":")
		name, conv, _ := strings.Cut(name, "!")
		var arg Value
		switch {
		case name == "":
			if auto >= len(args) {
				return nil, Errorf(IndexError, "Replacement index %d out of range for positional args tuple", auto)
			}
			arg = args[auto]
			auto++
		case name[0] >= '0' && name[0] <= '9':
			n, err := strconv.Atoi(name)
			if err != nil || n >= len(args) {
				return nil, Errorf(IndexError, "Replacement index %s out of range for positional args tuple", name)
			}
			arg = args[n]
		default:
			v, found, err := kwargs.Get(Str(name))
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, NewException(KeyError, Str(name))
			}
			arg = v
		}
		switch conv {
		case "r", "a":
			arg = Str(Repr(arg))
		case "s":
			arg = Str(ToStr(arg))
		}
		text, err := Format(arg, spec)
		if err != nil {
			return nil, err
		}
		b.WriteString(text)
	}
	return Str(b.String()), nil
}
