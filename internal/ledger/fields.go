package ledger

import "strings"

// Field is one comma-delimited value of a row along with its position in the
// row text. Start and End bound the raw text, quotes included.
type Field struct {
	Value  string
	Start  int
	End    int
	Quoted bool
}

// SplitFields parses a row into fields. A field that begins with a double
// quote runs to the matching closing quote, with "" as an escaped quote;
// commas inside it are part of the value. Malformed quoting is tolerated by
// taking the rest of the field literally.
func SplitFields(row string) []Field {
	var fields []Field
	i := 0
	for {
		f := Field{Start: i}
		if i < len(row) && row[i] == '"' {
			f.Quoted = true
			var b strings.Builder
			j := i + 1
			for j < len(row) {
				if row[j] == '"' {
					if j+1 < len(row) && row[j+1] == '"' {
						b.WriteByte('"')
						j += 2
						continue
					}
					j++
					break
				}
				b.WriteByte(row[j])
				j++
			}
			for j < len(row) && row[j] != ',' {
				b.WriteByte(row[j])
				j++
			}
			f.Value = b.String()
			i = j
		} else {
			j := strings.IndexByte(row[i:], ',')
			if j < 0 {
				j = len(row) - i
			}
			f.Value = row[i : i+j]
			i += j
		}
		f.End = i
		fields = append(fields, f)

		if i >= len(row) {
			return fields
		}
		i++
	}
}

// Values returns the unquoted values of a row.
func Values(row string) []string {
	fields := SplitFields(row)
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = f.Value
	}
	return values
}

// Column returns the unquoted value at index i, or "" when the row is shorter.
func Column(row string, i int) string {
	fields := SplitFields(row)
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i].Value
}

// ReplaceField rewrites the field f of row with value, keeping the field
// quoted if it was quoted or if value requires it.
func ReplaceField(row string, f Field, value string) string {
	return row[:f.Start] + encodeValue(value, f.Quoted) + row[f.End:]
}

// JoinFields encodes values as one row, quoting values that contain a comma,
// a double quote, or a line break.
func JoinFields(values []string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(encodeValue(v, false))
	}
	return b.String()
}

func encodeValue(v string, forceQuote bool) string {
	if !forceQuote && !strings.ContainsAny(v, ",\"\r\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
