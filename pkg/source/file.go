package source

import "os"

// File holds the contents of a source file, decoded into runes so that
// column offsets line up with logical characters rather than bytes.
type File struct {
	filename string
	contents []rune
}

// NewFile constructs a File from raw bytes.
func NewFile(filename string, bytes []byte) *File {
	return &File{filename, []rune(string(bytes))}
}

// ReadFile reads a file from disk into a File.
func ReadFile(filename string) (*File, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return NewFile(filename, bytes), nil
}

// Filename returns the name under which this file was read.
func (f *File) Filename() string {
	return f.filename
}

// Contents returns the decoded runes of this file.
func (f *File) Contents() []rune {
	return f.contents
}

// Line is a single physical line of source text, along with its 1-based
// line number and span within the file. textStart/textEnd are
// absolute indices into the file's rune buffer; span expresses the same
// line using the line-relative columns diag.Format renders against.
type Line struct {
	text             []rune
	textStart, textEnd int
	span             Span
	number           int
}

// String returns the text of this line.
func (l Line) String() string {
	return string(l.text[l.textStart:l.textEnd])
}

// Number returns the 1-based line number.
func (l Line) Number() int {
	return l.number
}

// FindLine returns the physical line containing a given 0-based line index,
// or the last line in the file if the index is out of bounds.
func (f *File) FindLine(lineIdx int) Line {
	start := 0
	num := 1

	for i := 0; i < len(f.contents); i++ {
		if num-1 == lineIdx {
			end := findEndOfLine(start, f.contents)
			return Line{f.contents, start, end, Span{Pos{num, 0}, Pos{num, end - start}}, num}
		}

		if f.contents[i] == '\n' {
			num++
			start = i + 1
		}
	}

	end := len(f.contents)
	return Line{f.contents, start, end, Span{Pos{num, 0}, Pos{num, end - start}}, num}
}

func findEndOfLine(start int, text []rune) int {
	for i := start; i < len(text); i++ {
		if text[i] == '\n' {
			return i
		}
	}

	return len(text)
}

// EOFPos returns a position synthesized at the end of the file, used when a
// diagnostic has no other span to anchor to.
func (f *File) EOFPos() Pos {
	lastLine := 1
	col := 0

	for i := 0; i < len(f.contents); i++ {
		col++

		if f.contents[i] == '\n' {
			lastLine++
			col = 0
		}
	}

	return Pos{lastLine, col}
}
